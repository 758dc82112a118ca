package frontend

import (
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

// Template adapts the embedded HTML templates to echo's Renderer interface.
type Template struct {
	templates *template.Template
}

func (t *Template) Render(w io.Writer, name string, data interface{}, ctx echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}
