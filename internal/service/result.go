// Package service contains the business logic between the result store and
// its two consumers: the test runner, which records results, and the HTTP
// API, which reads them back.
//
// THE LAYERS:
//
//	Runner / Handler → ResultService → ResultRepository (SQLite)
//
// ResultService takes a repository.ResultRepository interface, so tests pass
// an in-memory fake and main.go passes *sqlite.DB.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/mpi-testslot/internal/apperror"
	"github.com/sakif/mpi-testslot/internal/model"
	"github.com/sakif/mpi-testslot/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ResultService records and queries finished test runs.
type ResultService struct {
	repo   repository.ResultRepository
	logger *slog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(repo repository.ResultRepository, logger *slog.Logger) *ResultService {
	return &ResultService{
		repo:   repo,
		logger: logger,
	}
}

// Record stores the result of one finished test. The result must name the
// test it belongs to and a positive process count.
func (s *ResultService) Record(ctx context.Context, result *model.Result) error {
	if strings.TrimSpace(result.TestPath) == "" {
		return apperror.ValidationFailed("testPath", "test path is required")
	}
	if result.NumProcs < 1 {
		return apperror.ValidationFailed("numProcs", "process count must be at least 1")
	}

	if err := s.repo.Save(ctx, result); err != nil {
		s.logger.Error("failed to record result",
			slog.String("test", result.TestPath),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("recording result: %w", err)
	}

	s.logger.Debug("result recorded",
		slog.String("id", result.ID),
		slog.String("test", result.TestPath),
		slog.Bool("passed", result.Passed),
	)
	return nil
}

// GetByID retrieves a result by its ID.
// Returns apperror.ErrNotFound if the result doesn't exist.
func (s *ResultService) GetByID(ctx context.Context, id string) (*model.Result, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "result ID is required")
	}

	// NotFound is a normal answer, so it is passed through without logging.
	return s.repo.GetByID(ctx, id)
}

// List retrieves results newest first. limit is clamped to 1-100 (default
// 20), a negative offset counts as 0, and a non-empty testPath restricts the
// listing to that test.
func (s *ResultService) List(ctx context.Context, limit, offset int, testPath string) ([]model.Result, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	results, err := s.repo.List(ctx, repository.ListOptions{
		Limit:    limit,
		Offset:   offset,
		TestPath: strings.TrimSpace(testPath),
	})
	if err != nil {
		s.logger.Error("failed to list results", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing results: %w", err)
	}

	return results, nil
}
