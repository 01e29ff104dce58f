package databasesql

import (
	"context"
	"database/sql"

	"github.com/youssefsiam38/contextgc/brainstore"
)

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// executor adapts a *sql.DB or *sql.Tx to brainstore.Executor.
type executor struct {
	q querier
}

// WrapTx adapts a database/sql transaction for brainstore.WithExecutor.
func WrapTx(tx *sql.Tx) brainstore.Executor {
	return &executor{q: tx}
}

// Exec executes a query that doesn't return rows.
func (e *executor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := e.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Query executes a query that returns rows.
func (e *executor) Query(ctx context.Context, query string, args ...any) (brainstore.Rows, error) {
	rows, err := e.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &rowsWrapper{rows}, nil
}

// QueryRow executes a query that returns at most one row.
func (e *executor) QueryRow(ctx context.Context, query string, args ...any) brainstore.Row {
	return e.q.QueryRowContext(ctx, query, args...)
}

// rowsWrapper adapts *sql.Rows, whose Close returns an error, to brainstore.Rows.
type rowsWrapper struct {
	rows *sql.Rows
}

func (r *rowsWrapper) Close()                 { _ = r.rows.Close() }
func (r *rowsWrapper) Err() error             { return r.rows.Err() }
func (r *rowsWrapper) Next() bool             { return r.rows.Next() }
func (r *rowsWrapper) Scan(dest ...any) error { return r.rows.Scan(dest...) }
