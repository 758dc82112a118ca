package frontend

import "embed"

//go:embed views
var viewsFS embed.FS

const viewsPattern = "views/*.html"
