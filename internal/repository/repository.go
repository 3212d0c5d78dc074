package repository

import (
	"context"

	"github.com/sakif/mpi-testslot/internal/model"
)

type ListOptions struct {
	Limit    int
	Offset   int
	TestPath string // optional: only results of this test
}

// ResultRepository stores the records of finished test runs.
type ResultRepository interface {
	Save(ctx context.Context, result *model.Result) error
	GetByID(ctx context.Context, id string) (*model.Result, error)
	List(ctx context.Context, opts ListOptions) ([]model.Result, error)
}
