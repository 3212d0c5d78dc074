// Package handler serves the recorded test results over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/mpi-testslot/internal/apperror"
	"github.com/sakif/mpi-testslot/internal/model"
)

// ResultQuerier is the read side of service.ResultService.
type ResultQuerier interface {
	GetByID(ctx context.Context, id string) (*model.Result, error)
	List(ctx context.Context, limit, offset int, testPath string) ([]model.Result, error)
}

// ResultHandler serves the results API.
type ResultHandler struct {
	results ResultQuerier
	logger  *slog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(results ResultQuerier, logger *slog.Logger) *ResultHandler {
	return &ResultHandler{results: results, logger: logger}
}

// HandleList returns recorded results, newest first.
//
// HTTP: GET /api/results?test=transport/a.lua&limit=20&offset=0
//
// All query parameters are optional; limit and offset must be integers.
func (h *ResultHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := intParam(q.Get("offset"), "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := h.results.List(r.Context(), limit, offset, q.Get("test"))
	if err != nil {
		h.logger.Error("failed to list results", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// HandleGetByID returns one result.
//
// HTTP: GET /api/results/{id}
func (h *ResultHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.results.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}
