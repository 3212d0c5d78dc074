// Table-driven tests for the error constructors.
// Run with: go test ./internal/apperror/ -v
package apperror

import (
	"errors"
	"io/fs"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("result", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("limit", "limit must be positive"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "LaunchFailed wraps ErrLaunch",
			err:       LaunchFailed("tests/a.lua", fs.ErrNotExist),
			target:    ErrLaunch,
			wantMatch: true,
		},
		{
			name:      "LaunchFailed exposes its cause",
			err:       LaunchFailed("tests/a.lua", fs.ErrNotExist),
			target:    fs.ErrNotExist,
			wantMatch: true,
		},
		{
			name:      "CheckFailed wraps ErrCheck",
			err:       CheckFailed(errors.New("boom")),
			target:    ErrCheck,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("result", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "LaunchFailed does NOT match ErrCheck",
			err:       LaunchFailed("tests/a.lua", errors.New("no shell")),
			target:    ErrCheck,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("result", "abc123"),
			wantMessage: "result not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("limit", "limit must be positive"),
			wantMessage: "limit must be positive",
		},
		{
			name:        "LaunchFailed appends the cause",
			err:         LaunchFailed("tests/a.lua", errors.New("chdir /nope: no such file or directory")),
			wantMessage: "launching tests/a.lua: chdir /nope: no such file or directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestErrorsAs(t *testing.T) {
	var err error = LaunchFailed("tests/a.lua", errors.New("boom"))

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As did not extract *AppError")
	}
	if appErr.Message != "launching tests/a.lua" {
		t.Errorf("Message = %q", appErr.Message)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("offset", "offset must not be negative")

	if err.Field != "offset" {
		t.Errorf("Field = %q, want %q", err.Field, "offset")
	}
}
