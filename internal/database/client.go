package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
)

// Client runs typed SurrealQL against a managed connection. Reads use the
// query timeout and writes the execute timeout.
type Client[T any] interface {
	// Create inserts data into table and returns the stored record.
	Create(ctx context.Context, table string, data any) (*T, error)
	// Query returns the rows of the first statement of query.
	Query(ctx context.Context, query string, params map[string]any) ([]T, error)
	// QueryOne returns the single row of query, nil if there is none and
	// ErrMultipleResults if there are several.
	QueryOne(ctx context.Context, query string, params map[string]any) (*T, error)
	// Mutate runs a writing statement and returns the rows it reports.
	Mutate(ctx context.Context, query string, params map[string]any) ([]T, error)
	// Execute runs a statement and discards its rows.
	Execute(ctx context.Context, query string, params map[string]any) error
}

type client[T any] struct {
	conn           DBConnection
	queryTimeout   time.Duration
	executeTimeout time.Duration
}

// NewClient creates a client for rows of type T.
func NewClient[T any](conn DBConnection) (Client[T], error) {
	if conn == nil {
		return nil, NewDBError(ErrInvalidInput, "connection cannot be nil")
	}
	c := &client[T]{
		conn:           conn,
		queryTimeout:   conn.GetDBQueryTimeout(),
		executeTimeout: conn.GetDBExecuteTimeout(),
	}
	if c.queryTimeout <= 0 || c.executeTimeout <= 0 {
		return nil, NewDBError(ErrInvalidInput, "database timeouts must be positive")
	}
	return c, nil
}

func (c *client[T]) run(ctx context.Context, timeout time.Duration, query string, params map[string]any) ([]T, error) {
	ctx, cancel := timeoutContext(ctx, timeout)
	defer cancel()

	var rows []T
	err := c.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		results, err := surrealdb.Query[[]T](ctx, db, query, params)
		if err != nil {
			return err
		}
		if results == nil || len(*results) == 0 {
			rows = nil
			return nil
		}
		first := (*results)[0]
		if first.Status != "OK" {
			return fmt.Errorf("statement status %s", first.Status)
		}
		rows = first.Result
		return nil
	})
	if err != nil {
		return nil, NewDBError(errors.Join(ErrQueryFailed, err), "query").WithQuery(query).WithParams(params)
	}
	return rows, nil
}

func (c *client[T]) Query(ctx context.Context, query string, params map[string]any) ([]T, error) {
	return c.run(ctx, c.queryTimeout, query, params)
}

func (c *client[T]) QueryOne(ctx context.Context, query string, params map[string]any) (*T, error) {
	rows, err := c.Query(ctx, query, params)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		return nil, NewDBError(ErrMultipleResults, "query one").WithQuery(query)
	}
}

func (c *client[T]) Mutate(ctx context.Context, query string, params map[string]any) ([]T, error) {
	return c.run(ctx, c.executeTimeout, query, params)
}

func (c *client[T]) Execute(ctx context.Context, query string, params map[string]any) error {
	_, err := c.Mutate(ctx, query, params)
	return err
}

func (c *client[T]) Create(ctx context.Context, table string, data any) (*T, error) {
	if table == "" {
		return nil, NewDBError(ErrInvalidInput, "table cannot be empty")
	}
	if data == nil {
		return nil, NewDBError(ErrInvalidInput, "data cannot be nil")
	}
	rows, err := c.Mutate(ctx, "CREATE type::table($table) CONTENT $data", map[string]any{"table": table, "data": data})
	if err != nil {
		return nil, WrapError(err, "create "+table)
	}
	if len(rows) == 0 {
		return nil, NewDBError(ErrQueryFailed, "create "+table+" returned no record")
	}
	return &rows[0], nil
}
