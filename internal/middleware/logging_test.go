package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/mpi-testslot/internal/middleware"
)

func decodeLog(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestLogger(t *testing.T) {
	t.Run("records status and size", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		h := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("nope"))
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/results/x", nil))

		entry := decodeLog(t, &buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "/api/results/x", entry["path"])
		assert.EqualValues(t, 404, entry["status"])
		assert.EqualValues(t, 4, entry["bytes"])
		assert.NotContains(t, entry, "requestID")
	})

	t.Run("server errors and request ID", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		h := chimiddleware.RequestID(middleware.Logger(logger)(inner))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/results", nil))

		entry := decodeLog(t, &buf)
		assert.Equal(t, "ERROR", entry["level"])
		assert.NotEmpty(t, entry["requestID"])
	})
}
