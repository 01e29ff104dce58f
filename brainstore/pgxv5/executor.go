package pgxv5

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/youssefsiam38/contextgc/brainstore"
)

// querier is the subset shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// executor adapts a pool or transaction to brainstore.Executor.
type executor struct {
	q querier
}

// WrapTx adapts a pgx transaction for brainstore.WithExecutor.
func WrapTx(tx pgx.Tx) brainstore.Executor {
	return &executor{q: tx}
}

// Exec executes a query that doesn't return rows.
func (e *executor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	result, err := e.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Query executes a query that returns rows.
func (e *executor) Query(ctx context.Context, sql string, args ...any) (brainstore.Rows, error) {
	rows, err := e.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &rowsWrapper{rows}, nil
}

// QueryRow executes a query that returns at most one row.
func (e *executor) QueryRow(ctx context.Context, sql string, args ...any) brainstore.Row {
	return e.q.QueryRow(ctx, sql, args...)
}

// rowsWrapper adapts pgx.Rows to brainstore.Rows.
type rowsWrapper struct {
	rows pgx.Rows
}

func (r *rowsWrapper) Close()                 { r.rows.Close() }
func (r *rowsWrapper) Err() error             { return r.rows.Err() }
func (r *rowsWrapper) Next() bool             { return r.rows.Next() }
func (r *rowsWrapper) Scan(dest ...any) error { return r.rows.Scan(dest...) }
