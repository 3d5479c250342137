package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/csom/internal/csom"
)

// ErrNotFound is returned by Get for an unknown sequence number.
var ErrNotFound = errors.New("round trip not found")

// Entry is one stored round trip.
type Entry struct {
	Seq                int64
	ID                 string
	OperationID        string
	Operation          string
	Phase              int
	Endpoint           string
	Request            string
	Response           string
	HasResponse        bool
	Outcome            csom.Outcome
	ErrorCode          csom.ErrorCode
	ErrorMessage       string
	TraceCorrelationID string
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Operation   string
	OperationID string
	Limit       int
}

const entryColumns = `seq, id, operation_id, operation, phase, endpoint, request, response, outcome, error_code, error_message, trace_correlation_id`

// List returns the entries matching f ordered by seq ASC.
// Returns an empty slice (not nil) when nothing matches.
func (j *Journal) List(ctx context.Context, f Filter) ([]Entry, error) {
	var where []string
	var args []any
	if f.Operation != "" {
		where = append(where, "operation = ?")
		args = append(args, f.Operation)
	}
	if f.OperationID != "" {
		where = append(where, "operation_id = ?")
		args = append(args, f.OperationID)
	}

	query := `SELECT ` + entryColumns + ` FROM round_trips`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query round trips: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate round trips: %w", err)
	}
	return entries, nil
}

// Get returns the entry with sequence number seq.
func (j *Journal) Get(ctx context.Context, seq int64) (Entry, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM round_trips WHERE seq = ?`, seq)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("seq %d: %w", seq, ErrNotFound)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var response sql.NullString
	var outcome, code string
	err := s.Scan(
		&e.Seq,
		&e.ID,
		&e.OperationID,
		&e.Operation,
		&e.Phase,
		&e.Endpoint,
		&e.Request,
		&response,
		&outcome,
		&code,
		&e.ErrorMessage,
		&e.TraceCorrelationID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}
	if err != nil {
		return Entry{}, fmt.Errorf("scan round trip: %w", err)
	}
	e.Response = response.String
	e.HasResponse = response.Valid
	e.Outcome = csom.Outcome(outcome)
	e.ErrorCode = csom.ErrorCode(code)
	return e, nil
}

// Query runs a raw query against the journal database.
// The caller must close the returned rows.
func (j *Journal) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return j.db.QueryContext(ctx, query, args...)
}
