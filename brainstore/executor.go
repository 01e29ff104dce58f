package brainstore

import "context"

// Row represents a single database row.
// This interface is compatible with both pgx.Row and *sql.Row.
type Row interface {
	Scan(dest ...any) error
}

// Rows represents a result set from a query.
// This interface is compatible with both pgx.Rows and *sql.Rows.
type Rows interface {
	Close()
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// Executor runs queries for a SQL-backed store. It can represent either a
// connection pool or a caller's transaction.
type Executor interface {
	// Exec executes a query that doesn't return rows.
	// Returns the number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a query that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

type executorContextKey struct{}

// WithExecutor returns a context whose store calls run on exec. Use it to
// record brain ids inside a transaction the caller already holds:
//
//	tx, _ := pool.Begin(ctx)
//	txCtx := brainstore.WithExecutor(ctx, pgxv5.WrapTx(tx))
//	_ = store.SetBrainID(txCtx, sessionID, messageID, id)
//	_ = tx.Commit(ctx)
func WithExecutor(ctx context.Context, exec Executor) context.Context {
	return context.WithValue(ctx, executorContextKey{}, exec)
}

// ExecutorFromContext returns the executor stored by WithExecutor, or nil.
func ExecutorFromContext(ctx context.Context) Executor {
	if exec, ok := ctx.Value(executorContextKey{}).(Executor); ok {
		return exec
	}
	return nil
}
