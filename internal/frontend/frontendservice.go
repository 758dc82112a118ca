package frontend

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jo-hoe/layerbatch/internal/core"
	"github.com/jo-hoe/layerbatch/internal/database"
	"github.com/jo-hoe/layerbatch/internal/pathutil"
	"github.com/labstack/echo/v4"
)

const MainPageName = "index.html"

type FrontendService struct {
	coreService *core.CoreService
}

func NewFrontendService(coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	// Create template renderer
	e.Renderer = &Template{
		templates: template.Must(template.New("").ParseFS(viewsFS, viewsPattern)),
	}

	e.GET("/", service.rootRedirectHandler) // Redirect root to index.html
	e.GET("/"+MainPageName, service.indexHandler)
	e.POST("/htmx/uploadSource", service.htmxUploadSourceHandler)

	// Routes for listing and deleting runs
	e.GET("/htmx/runs", service.htmxListRunsHandler)
	e.DELETE("/htmx/run/:id", service.htmxDeleteRunHandler)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, MainPageName, nil)
}

func (service *FrontendService) htmxUploadSourceHandler(ctx echo.Context) error {
	// Get uploaded file
	file, err := ctx.FormFile("source")
	if err != nil {
		slog.Error("htmxUploadSourceHandler: failed to get uploaded file",
			"status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Failed to get uploaded file")
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("htmxUploadSourceHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to open uploaded file")
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("htmxUploadSourceHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	// Read file content reliably
	content, err := io.ReadAll(src)
	if err != nil {
		slog.Error("htmxUploadSourceHandler: failed to read uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to read uploaded file")
	}

	// The run processes the file from disk, so stage it in a directory the
	// run removes once it is done.
	uploadDir, err := os.MkdirTemp("", "layerbatch-upload-")
	if err != nil {
		slog.Error("htmxUploadSourceHandler: failed to create upload directory",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to store uploaded file")
	}

	sourceName := pathutil.SanitizeFilename(filepath.Base(file.Filename))
	sourcePath := filepath.Join(uploadDir, sourceName)
	if err := os.WriteFile(sourcePath, content, 0644); err != nil {
		service.removeUploadDir(uploadDir)
		slog.Error("htmxUploadSourceHandler: failed to store uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to store uploaded file")
	}

	run, err := service.coreService.StartRun(core.RunRequest{
		SourcePath: sourcePath,
		SourceName: sourceName,
		CleanupDir: uploadDir,
	})
	if err != nil {
		service.removeUploadDir(uploadDir)
		slog.Error("htmxUploadSourceHandler: failed to start run",
			"status", http.StatusBadRequest, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusBadRequest, "Failed to start run")
	}
	slog.Info("run started", "run_id", run.ID, "source", sourceName)

	// Return a status message plus an out-of-band swap to refresh the run list
	listHTML, listErr := service.buildRunListHTML(ctx.Request().Context())
	if listErr != nil {
		// If building the list fails, still return the upload result
		slog.Error("htmxUploadSourceHandler: failed to list runs for OOB update",
			"status", http.StatusInternalServerError, "error", listErr)
		result := fmt.Sprintf(`<div id="upload-result">Started run for: %s</div>`, html.EscapeString(sourceName))
		return ctx.HTML(http.StatusOK, result)
	}
	runListOOB := fmt.Sprintf(`<div id="run-list" hx-swap-oob="true">%s</div>`, listHTML)

	// Return HTML with OOB swap for the run list
	result := fmt.Sprintf(`<div id="upload-result">Started run for: %s</div>%s`, html.EscapeString(sourceName), runListOOB)
	return ctx.HTML(http.StatusOK, result)
}

func (service *FrontendService) htmxListRunsHandler(ctx echo.Context) error {
	listHTML, err := service.buildRunListHTML(ctx.Request().Context())
	if err != nil {
		slog.Error("htmxListRunsHandler: failed to list runs",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to list runs")
	}

	// Prevent caching so the latest run states are always shown
	service.setNoCache(ctx)

	return ctx.HTML(http.StatusOK, listHTML)
}

func (service *FrontendService) htmxDeleteRunHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		slog.Warn("htmxDeleteRunHandler: missing run id",
			"status", http.StatusBadRequest,
			"route", "/htmx/run/:id")
		return ctx.String(http.StatusBadRequest, "Missing run ID")
	}

	if err := service.coreService.DeleteRun(ctx.Request().Context(), id); err != nil {
		slog.Error("htmxDeleteRunHandler: failed to delete run",
			"status", http.StatusInternalServerError, "run_id", id, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to delete run")
	}

	// Build updated list HTML
	listHTML, err := service.buildRunListHTML(ctx.Request().Context())
	if err != nil {
		slog.Error("htmxDeleteRunHandler: failed to list runs after delete",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to list runs")
	}

	// Prevent caching so the latest state is shown
	service.setNoCache(ctx)

	// Return list HTML (to swap into #run-list)
	return ctx.HTML(http.StatusOK, listHTML)
}

func (service *FrontendService) buildRunListHTML(ctx context.Context) (string, error) {
	runs, err := service.coreService.Store().GetAllRuns()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if len(runs) == 0 {
		b.WriteString(`<p>No runs yet.</p>`)
		return b.String(), nil
	}

	b.WriteString(`<div class="vertical-list">`)
	for _, run := range runs {
		b.WriteString(service.buildRunItemHTML(ctx, run))
	}
	b.WriteString(`</div>`)
	return b.String(), nil
}

func (service *FrontendService) buildRunItemHTML(ctx context.Context, run *database.Run) string {
	statusText := run.Status
	if run.Status == database.StatusRunning {
		// Show live progress while the run is still working
		if state, err := service.coreService.RunProgress(ctx, run.ID); err == nil && state.TotalTasks > 0 {
			statusText = fmt.Sprintf("%s (%d/%d)", run.Status, state.FinishedTasks, state.TotalTasks)
		}
	}

	messageHTML := ""
	if run.Message != "" {
		messageHTML = fmt.Sprintf(`
	<p><small>%s</small></p>`, html.EscapeString(run.Message))
	}

	countsHTML := ""
	switch run.Status {
	case database.StatusCompleted, database.StatusFailed, database.StatusCancelled:
		counts := fmt.Sprintf("%d items, %d exported", run.ItemCount, run.ExportedCount)
		if run.SkippedCount > 0 {
			counts += fmt.Sprintf(", %d skipped", run.SkippedCount)
		}
		if run.FailedCount > 0 {
			counts += fmt.Sprintf(", %d failed", run.FailedCount)
		}
		countsHTML = fmt.Sprintf(`
		<small>%s</small>`, counts)
	}

	return fmt.Sprintf(`<div class="vertical-item" data-id="%s" style="margin-bottom:1rem"><article>
	<header><strong>%s</strong> <small>%s</small></header>
	<p>Status: %s</p>%s
	<footer style="display:flex;gap:0.5rem;align-items:center;flex-wrap:wrap">%s
		<button hx-delete="/htmx/run/%s" hx-target="#run-list" hx-swap="innerHTML" class="secondary">Delete</button>
	</footer>
</article></div>`,
		run.ID,
		html.EscapeString(run.Source),
		run.CreatedAt.Format("2006-01-02 15:04:05"),
		statusText,
		messageHTML,
		countsHTML,
		run.ID)
}

func (service *FrontendService) removeUploadDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("failed to remove upload directory", "directory", dir, "error", err)
	}
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := viewsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}
