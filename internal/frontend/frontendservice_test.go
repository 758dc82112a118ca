package frontend

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jo-hoe/layerbatch/internal/core"
	"github.com/jo-hoe/layerbatch/internal/database"
	"github.com/labstack/echo/v4"
)

func newTestFrontend(t *testing.T) (*echo.Echo, *core.CoreService) {
	t.Helper()

	config := &core.ServiceConfig{
		Database: core.Database{Type: "sqlite", ConnectionString: ":memory:"},
		Output:   core.Output{Directory: t.TempDir()},
	}

	service := core.NewCoreService(config)
	t.Cleanup(func() {
		if err := service.Close(); err != nil {
			t.Errorf("Expected no close error, got %v", err)
		}
	})

	e := echo.New()
	frontendService := NewFrontendService(service)
	frontendService.SetRoutes(e)
	return e, service
}

func multipartSource(t *testing.T, filename string) (io.Reader, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("source", filename)
	if err != nil {
		t.Fatalf("Expected no error creating form file, got %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	if err := png.Encode(part, img); err != nil {
		t.Fatalf("Expected no error encoding test image, got %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Expected no error closing multipart writer, got %v", err)
	}
	return &body, writer.FormDataContentType()
}

func doRequest(e *echo.Echo, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, body)
	if contentType != "" {
		request.Header.Set(echo.HeaderContentType, contentType)
	}
	recorder := httptest.NewRecorder()
	e.ServeHTTP(recorder, request)
	return recorder
}

func waitForRun(t *testing.T, service *core.CoreService, id string) *database.Run {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := service.Store().GetRun(id)
		if err != nil {
			t.Fatalf("Expected no error fetching run, got %v", err)
		}
		if run != nil && run.Status != database.StatusPending && run.Status != database.StatusRunning {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected run %s to finish before the deadline", id)
	return nil
}

func TestRootRedirect(t *testing.T) {
	e, _ := newTestFrontend(t)

	recorder := doRequest(e, http.MethodGet, "/", nil, "")

	if recorder.Code != http.StatusMovedPermanently {
		t.Errorf("Expected status %d, got %d", http.StatusMovedPermanently, recorder.Code)
	}
	if location := recorder.Header().Get(echo.HeaderLocation); location != "/index.html" {
		t.Errorf("Expected redirect to /index.html, got %q", location)
	}
}

func TestIndexPage(t *testing.T) {
	e, _ := newTestFrontend(t)

	recorder := doRequest(e, http.MethodGet, "/index.html", nil, "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	body := recorder.Body.String()
	if !strings.Contains(body, `id="run-list"`) {
		t.Errorf("Expected page to contain the run list container, got %q", body)
	}
	if !strings.Contains(body, "htmx.org") {
		t.Errorf("Expected page to load htmx, got %q", body)
	}
}

func TestListRuns_Empty(t *testing.T) {
	e, _ := newTestFrontend(t)

	recorder := doRequest(e, http.MethodGet, "/htmx/runs", nil, "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "No runs yet.") {
		t.Errorf("Expected empty list message, got %q", recorder.Body.String())
	}
	if cacheControl := recorder.Header().Get("Cache-Control"); !strings.Contains(cacheControl, "no-store") {
		t.Errorf("Expected no-store cache header, got %q", cacheControl)
	}
}

func TestUploadSource(t *testing.T) {
	e, service := newTestFrontend(t)

	body, contentType := multipartSource(t, "photo.png")
	recorder := doRequest(e, http.MethodPost, "/htmx/uploadSource", body, contentType)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}
	responseHTML := recorder.Body.String()
	if !strings.Contains(responseHTML, "Started run for: photo.png") {
		t.Errorf("Expected upload result message, got %q", responseHTML)
	}
	if !strings.Contains(responseHTML, `hx-swap-oob="true"`) {
		t.Errorf("Expected out-of-band run list update, got %q", responseHTML)
	}

	runs, err := service.Store().GetAllRuns()
	if err != nil {
		t.Fatalf("Expected no error listing runs, got %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}
	run := waitForRun(t, service, runs[0].ID)
	if run.Status != database.StatusCompleted {
		t.Errorf("Expected status %q, got %q (message %q)", database.StatusCompleted, run.Status, run.Message)
	}
}

func TestUploadSource_MissingFile(t *testing.T) {
	e, _ := newTestFrontend(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.Close(); err != nil {
		t.Fatalf("Expected no error closing multipart writer, got %v", err)
	}
	recorder := doRequest(e, http.MethodPost, "/htmx/uploadSource", &body, writer.FormDataContentType())

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestListRuns_ShowsFinishedRun(t *testing.T) {
	e, service := newTestFrontend(t)

	body, contentType := multipartSource(t, "photo.png")
	doRequest(e, http.MethodPost, "/htmx/uploadSource", body, contentType)
	runs, err := service.Store().GetAllRuns()
	if err != nil || len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d (error %v)", len(runs), err)
	}
	waitForRun(t, service, runs[0].ID)

	recorder := doRequest(e, http.MethodGet, "/htmx/runs", nil, "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	listHTML := recorder.Body.String()
	if !strings.Contains(listHTML, "photo.png") {
		t.Errorf("Expected list to contain the source name, got %q", listHTML)
	}
	if !strings.Contains(listHTML, "Status: "+database.StatusCompleted) {
		t.Errorf("Expected list to show the completed status, got %q", listHTML)
	}
	if !strings.Contains(listHTML, "1 items, 1 exported") {
		t.Errorf("Expected list to show the run counts, got %q", listHTML)
	}
}

func TestDeleteRun(t *testing.T) {
	e, service := newTestFrontend(t)

	body, contentType := multipartSource(t, "photo.png")
	doRequest(e, http.MethodPost, "/htmx/uploadSource", body, contentType)
	runs, err := service.Store().GetAllRuns()
	if err != nil || len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d (error %v)", len(runs), err)
	}
	run := waitForRun(t, service, runs[0].ID)

	recorder := doRequest(e, http.MethodDelete, "/htmx/run/"+run.ID, nil, "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "No runs yet.") {
		t.Errorf("Expected empty list after delete, got %q", recorder.Body.String())
	}
}

func TestIcon(t *testing.T) {
	e, _ := newTestFrontend(t)

	recorder := doRequest(e, http.MethodGet, "/icon.svg", nil, "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if contentType := recorder.Header().Get(echo.HeaderContentType); contentType != "image/svg+xml" {
		t.Errorf("Expected content type image/svg+xml, got %q", contentType)
	}
	if !bytes.Contains(recorder.Body.Bytes(), []byte("<svg")) {
		t.Errorf("Expected SVG payload, got %q", recorder.Body.String())
	}
}
