package database

import (
	"context"
	"database/sql"
)

// Querier is the narrow surface repositories consume. The Manager satisfies
// it; tests substitute sqlmock-backed fakes.
type Querier interface {
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) (*sql.Row, error)
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var _ Querier = (*Manager)(nil)
