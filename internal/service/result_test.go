package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/sakif/mpi-testslot/internal/apperror"
	"github.com/sakif/mpi-testslot/internal/model"
	"github.com/sakif/mpi-testslot/internal/repository"
)

// mockResultRepo is an in-memory repository.ResultRepository. It remembers
// the last ListOptions so tests can see what the service asked for.
type mockResultRepo struct {
	results  map[string]*model.Result
	nextID   int
	lastList repository.ListOptions
	err      error
}

func newMockRepo() *mockResultRepo {
	return &mockResultRepo{results: make(map[string]*model.Result)}
}

func (m *mockResultRepo) Save(_ context.Context, r *model.Result) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	r.ID = fmt.Sprintf("mock-%d", m.nextID)
	stored := *r
	m.results[r.ID] = &stored
	return nil
}

func (m *mockResultRepo) GetByID(_ context.Context, id string) (*model.Result, error) {
	r, ok := m.results[id]
	if !ok {
		return nil, apperror.NotFound("result", id)
	}
	copied := *r
	return &copied, nil
}

func (m *mockResultRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Result, error) {
	m.lastList = opts
	if m.err != nil {
		return nil, m.err
	}
	out := []model.Result{}
	for _, r := range m.results {
		if opts.TestPath != "" && r.TestPath != opts.TestPath {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func newTestService(repo *mockResultRepo) *ResultService {
	return NewResultService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRecord_Valid(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	r := &model.Result{TestPath: "a.lua", NumProcs: 4, Passed: true}
	if err := svc.Record(context.Background(), r); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if r.ID == "" {
		t.Error("Record() did not set ID")
	}
	if len(repo.results) != 1 {
		t.Errorf("stored %d results, want 1", len(repo.results))
	}
}

func TestRecord_Validation(t *testing.T) {
	tests := []struct {
		name   string
		result model.Result
	}{
		{"empty path", model.Result{TestPath: "", NumProcs: 1}},
		{"blank path", model.Result{TestPath: "   ", NumProcs: 1}},
		{"zero procs", model.Result{TestPath: "a.lua", NumProcs: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			svc := newTestService(repo)

			err := svc.Record(context.Background(), &tt.result)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Record() error = %v, want ErrValidation", err)
			}
			if len(repo.results) != 0 {
				t.Error("invalid result was stored")
			}
		})
	}
}

func TestRecord_RepositoryError(t *testing.T) {
	repo := newMockRepo()
	repo.err = errors.New("disk full")
	svc := newTestService(repo)

	err := svc.Record(context.Background(), &model.Result{TestPath: "a.lua", NumProcs: 1})
	if err == nil || !errors.Is(err, repo.err) {
		t.Errorf("Record() error = %v, want wrapped repository error", err)
	}
}

func TestGetByID(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	r := &model.Result{TestPath: "a.lua", NumProcs: 2}
	if err := svc.Record(context.Background(), r); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := svc.GetByID(context.Background(), "  "+r.ID+" ")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.TestPath != "a.lua" {
		t.Errorf("TestPath = %q, want a.lua", got.TestPath)
	}

	if _, err := svc.GetByID(context.Background(), "nope"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID(nope) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetByID(context.Background(), ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("GetByID(\"\") error = %v, want ErrValidation", err)
	}
}

func TestList_Clamping(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", 0, 0, DefaultListLimit, 0},
		{"negative limit", -5, 0, DefaultListLimit, 0},
		{"too large", 1000, 0, MaxListLimit, 0},
		{"negative offset", 10, -1, 10, 0},
		{"passes through", 7, 14, 7, 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			svc := newTestService(repo)

			if _, err := svc.List(context.Background(), tt.limit, tt.offset, ""); err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if repo.lastList.Limit != tt.wantLimit || repo.lastList.Offset != tt.wantOffset {
				t.Errorf("ListOptions = %+v, want limit %d offset %d", repo.lastList, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestList_FilterByTestPath(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	for _, p := range []string{"a.lua", "b.lua", "a.lua"} {
		if err := svc.Record(context.Background(), &model.Result{TestPath: p, NumProcs: 1}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := svc.List(context.Background(), 0, 0, " a.lua ")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if repo.lastList.TestPath != "a.lua" {
		t.Errorf("TestPath filter = %q, want trimmed a.lua", repo.lastList.TestPath)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestList_RepositoryError(t *testing.T) {
	repo := newMockRepo()
	repo.err = errors.New("database locked")
	svc := newTestService(repo)

	if _, err := svc.List(context.Background(), 0, 0, ""); !errors.Is(err, repo.err) {
		t.Errorf("List() error = %v, want wrapped repository error", err)
	}
}
