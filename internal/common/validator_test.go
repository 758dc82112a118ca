package common

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

type validatedRequest struct {
	ID string `validate:"required,uuid4"`
}

func TestEchoValidator(t *testing.T) {
	v := NewEchoValidator()

	err := v.Validate(&validatedRequest{ID: "8c7fions-invalid"})
	if err == nil {
		t.Fatal("Expected an error for an invalid uuid")
	}
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected an echo HTTP error, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, httpErr.Code)
	}

	if err := v.Validate(&validatedRequest{ID: "1b4e28ba-2fa1-41d2-883f-0016362b4c4f"}); err != nil {
		t.Errorf("Expected no error for a valid uuid, got %v", err)
	}
}
