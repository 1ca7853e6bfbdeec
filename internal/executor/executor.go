// Package executor runs a single SQL statement against a connection
// handle: rollback-only transaction scope, session-level timeout setup,
// diagnostic comment tagging, and normalization of columns, rows and
// errors across engines. Statement failures are returned as data, never
// as Go errors.
package executor

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/omarriaga/blazer/internal/adapter"
)

// Executor holds the per-data-source execution settings.
type Executor struct {
	Adapter adapter.Adapter

	// Timeout bounds statement execution via a session setting on the
	// database side. Zero means unbounded.
	Timeout time.Duration

	// UseTransaction wraps execution in a transaction that is always
	// rolled back, so statements can never commit side effects.
	UseTransaction bool

	Logger *slog.Logger
}

// Output is the normalized result of one execution.
type Output struct {
	Columns []string
	Rows    [][]any

	// Err is the normalized statement error; empty on success. When set,
	// Columns and Rows are empty, not partial.
	Err string

	// Elapsed is the wall-clock duration of timeout setup plus execution,
	// used for slow-cache eligibility.
	Elapsed time.Duration
}

// querier is satisfied by *sql.Tx and *sql.Conn. Both pin one
// connection, which session-level SET statements rely on.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execute runs statement against db with the diagnostic comment
// appended. Bind args are passed through to the driver untouched. The
// only Go error it returns is TimeoutNotSupportedError, raised before
// any database contact; every database-reported failure comes back
// normalized in Output.Err.
func (e *Executor) Execute(ctx context.Context, db *sql.DB, statement string, comment Comment, args ...any) (*Output, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var timeoutSQL string
	if e.Timeout > 0 {
		if e.Adapter.TimeoutSQL == nil {
			return nil, &TimeoutNotSupportedError{Adapter: e.Adapter.Name}
		}
		timeoutSQL = e.Adapter.TimeoutSQL(e.Timeout)
	}

	annotated := comment.Annotate(statement)
	out := &Output{}
	start := time.Now()

	if e.UseTransaction {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			out.Err = NormalizeError(err)
			out.Elapsed = time.Since(start)
			return out, nil
		}
		// Never commit: this runner's contract is read-only use.
		defer func() { _ = tx.Rollback() }()
		e.run(ctx, tx, timeoutSQL, annotated, args, out)
	} else {
		conn, err := db.Conn(ctx)
		if err != nil {
			out.Err = NormalizeError(err)
			out.Elapsed = time.Since(start)
			return out, nil
		}
		defer func() { _ = conn.Close() }()
		e.run(ctx, conn, timeoutSQL, annotated, args, out)
	}

	out.Elapsed = time.Since(start)
	if out.Err != "" {
		logger.Debug("statement failed", "adapter", e.Adapter.Name, "error", out.Err)
	} else {
		logger.Debug("statement executed", "adapter", e.Adapter.Name, "rows", len(out.Rows), "elapsed", out.Elapsed)
	}
	return out, nil
}

func (e *Executor) run(ctx context.Context, q querier, timeoutSQL, statement string, args []any, out *Output) {
	if timeoutSQL != "" {
		if _, err := q.ExecContext(ctx, timeoutSQL); err != nil {
			out.Err = NormalizeError(err)
			return
		}
	}

	rows, err := q.QueryContext(ctx, statement, args...)
	if err != nil {
		out.Err = NormalizeError(err)
		return
	}
	defer func() { _ = rows.Close() }()

	cols, data, err := normalizeRows(rows)
	if err != nil {
		out.Err = NormalizeError(err)
		return
	}
	out.Columns = cols
	out.Rows = data
}
