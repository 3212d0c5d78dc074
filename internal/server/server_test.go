package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/mpi-testslot/internal/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(Config{DBPath: ":memory:"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t)

	stored := &model.Result{TestPath: "transport/a.lua", NumProcs: 4, Passed: true, Annotations: []string{}}
	require.NoError(t, s.db.Save(context.Background(), stored))
	require.NoError(t, s.db.Save(context.Background(), &model.Result{TestPath: "other.lua", NumProcs: 1}))

	t.Run("health", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, get(t, s, "/healthz").Code)
	})

	t.Run("list filtered", func(t *testing.T) {
		rr := get(t, s, "/api/results?test=transport/a.lua")
		require.Equal(t, http.StatusOK, rr.Code)

		var got []model.Result
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		require.Len(t, got, 1)
		assert.Equal(t, stored.ID, got[0].ID)
	})

	t.Run("get by id", func(t *testing.T) {
		rr := get(t, s, "/api/results/"+stored.ID)
		require.Equal(t, http.StatusOK, rr.Code)

		var got model.Result
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, 4, got.NumProcs)
		assert.True(t, got.Passed)
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(t, s, "/api/results/nope").Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(t, s, "/api/tests").Code)
	})
}
