package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/layerbatch/internal/core"
	"github.com/jo-hoe/layerbatch/internal/database"
	"github.com/jo-hoe/layerbatch/internal/pathutil"
	"github.com/jo-hoe/layerbatch/internal/progress"
)

// APIService serves the run API on top of the core service.
type APIService struct {
	service *core.CoreService
}

func NewAPIService(service *core.CoreService) *APIService {
	return &APIService{service: service}
}

// Run is the API representation of a stored run.
type Run struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	Status        string    `json:"status"`
	Message       string    `json:"message,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	ItemCount     int       `json:"itemCount"`
	ExportedCount int       `json:"exportedCount"`
	SkippedCount  int       `json:"skippedCount"`
	FailedCount   int       `json:"failedCount"`
	ExportedFiles []string  `json:"exportedFiles,omitempty"`
}

func newRun(run *database.Run) Run {
	return Run{
		ID:            run.ID,
		Source:        run.Source,
		Status:        run.Status,
		Message:       run.Message,
		CreatedAt:     run.CreatedAt,
		ItemCount:     run.ItemCount,
		ExportedCount: run.ExportedCount,
		SkippedCount:  run.SkippedCount,
		FailedCount:   run.FailedCount,
		ExportedFiles: run.ExportedFiles,
	}
}

// SetRoutes registers the API routes on the given server.
func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	e.POST("/api/runs", s.createRun)
	e.GET("/api/runs", s.listRuns)
	e.GET("/api/runs/:id", s.getRun)
	e.GET("/api/runs/:id/progress", s.getRunProgress)
	e.DELETE("/api/runs/:id", s.deleteRun)
}

// createRun starts a run for an uploaded source. The multipart form
// carries the source file and an optional YAML pipeline override,
// either as a second file or as a form value named "pipeline".
func (s *APIService) createRun(c echo.Context) error {
	file, err := c.FormFile("source")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing source file")
	}

	pipeline, err := s.pipelineOverride(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid pipeline: %v", err))
	}

	uploadDir, err := os.MkdirTemp("", "layerbatch-upload-")
	if err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	sourceName := pathutil.SanitizeFilename(filepath.Base(file.Filename))
	sourcePath := filepath.Join(uploadDir, sourceName)
	if err := saveUpload(file, sourcePath); err != nil {
		removeUploadDir(uploadDir)
		return fmt.Errorf("failed to save upload: %w", err)
	}

	run, err := s.service.StartRun(core.RunRequest{
		SourcePath: sourcePath,
		SourceName: sourceName,
		CleanupDir: uploadDir,
		Pipeline:   pipeline,
	})
	if err != nil {
		removeUploadDir(uploadDir)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	slog.Info("run started", "run_id", run.ID, "source", sourceName)
	return c.JSON(http.StatusCreated, newRun(run))
}

func (s *APIService) pipelineOverride(c echo.Context) (*core.Pipeline, error) {
	if file, err := c.FormFile("pipeline"); err == nil {
		reader, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, err
		}
		return core.ParsePipeline(data)
	}
	if value := c.FormValue("pipeline"); value != "" {
		return core.ParsePipeline([]byte(value))
	}
	return nil, nil
}

func saveUpload(file *multipart.FileHeader, path string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func removeUploadDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("failed to remove upload directory", "directory", dir, "error", err)
	}
}

func (s *APIService) listRuns(c echo.Context) error {
	runs, err := s.service.Store().GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	response := make([]Run, 0, len(runs))
	for _, run := range runs {
		response = append(response, newRun(run))
	}
	return c.JSON(http.StatusOK, response)
}

func (s *APIService) getRun(c echo.Context) error {
	runID, err := bindRunID(c)
	if err != nil {
		return err
	}

	run, err := s.service.Store().GetRun(runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return c.JSON(http.StatusOK, newRun(run))
}

func (s *APIService) getRunProgress(c echo.Context) error {
	runID, err := bindRunID(c)
	if err != nil {
		return err
	}

	state, err := s.service.RunProgress(c.Request().Context(), runID)
	if errors.Is(err, core.ErrProgressTrackingDisabled) || errors.Is(err, progress.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return fmt.Errorf("failed to load run progress: %w", err)
	}
	return c.JSON(http.StatusOK, state)
}

func (s *APIService) deleteRun(c echo.Context) error {
	runID, err := bindRunID(c)
	if err != nil {
		return err
	}

	run, err := s.service.Store().GetRun(runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}

	if err := s.service.DeleteRun(c.Request().Context(), runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	slog.Info("run deleted", "run_id", runID)
	return c.NoContent(http.StatusNoContent)
}

// bindRunID validates the :id path parameter.
func bindRunID(c echo.Context) (string, error) {
	var params struct {
		ID string `param:"id" validate:"required,uuid4"`
	}
	if err := c.Bind(&params); err != nil {
		return "", err
	}
	if err := c.Validate(&params); err != nil {
		return "", err
	}
	return params.ID, nil
}
