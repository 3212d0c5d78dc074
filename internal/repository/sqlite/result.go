package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/mpi-testslot/internal/apperror"
	"github.com/sakif/mpi-testslot/internal/model"
	"github.com/sakif/mpi-testslot/internal/repository"
)

// compile-time check that *DB implements repository.ResultRepository
var _ repository.ResultRepository = (*DB)(nil)

const resultColumns = `id, test_path, num_procs, passed, skipped, skip_reason, annotations,
	exit_code, command, elapsed_seconds, duration_ns, created_at`

// Save inserts a result record. A record without an ID gets a new xid, and
// one without a timestamp gets the current time; both are written back into
// result.
func (db *DB) Save(ctx context.Context, result *model.Result) error {
	if result.ID == "" {
		result.ID = xid.New().String()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	annotations := result.Annotations
	if annotations == nil {
		annotations = []string{}
	}
	encoded, err := json.Marshal(annotations)
	if err != nil {
		return fmt.Errorf("sqlite: encoding annotations: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO results (`+resultColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.TestPath,
		result.NumProcs,
		result.Passed,
		result.Skipped,
		result.SkipReason,
		string(encoded),
		result.ExitCode,
		result.Command,
		result.Elapsed,
		int64(result.Duration),
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving result: %w", err)
	}

	return nil
}

// GetByID retrieves a single result by its ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Result, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM results WHERE id = ?`, id)

	result, err := scanResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("result", id)
		}
		return nil, fmt.Errorf("sqlite: getting result %s: %w", id, err)
	}

	return result, nil
}

// List returns results newest first, optionally limited to one test path.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + resultColumns + ` FROM results`
	args := []any{}
	if opts.TestPath != "" {
		query += ` WHERE test_path = ?`
		args = append(args, opts.TestPath)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing results: %w", err)
	}
	defer rows.Close()

	results := make([]model.Result, 0, limit)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning result row: %w", err)
		}
		results = append(results, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating results: %w", err)
	}

	return results, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanResult(s scanner) (*model.Result, error) {
	var (
		r           model.Result
		annotations string
		durationNS  int64
	)
	if err := s.Scan(
		&r.ID, &r.TestPath, &r.NumProcs, &r.Passed, &r.Skipped, &r.SkipReason,
		&annotations, &r.ExitCode, &r.Command, &r.Elapsed, &durationNS, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(annotations), &r.Annotations); err != nil {
		return nil, fmt.Errorf("decoding annotations: %w", err)
	}
	r.Duration = time.Duration(durationNS)
	return &r, nil
}
