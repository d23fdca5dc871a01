package database

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nfrund/gymhub/internal/domain"
)

// Database errors, checkable with errors.Is. ErrNotFound also matches
// domain.ErrNotFound so store callers see a domain failure.
var (
	ErrNotFound        = fmt.Errorf("record %w", domain.ErrNotFound)
	ErrInvalidInput    = errors.New("invalid input data")
	ErrQueryFailed     = errors.New("query execution failed")
	ErrNotConnected    = errors.New("database not connected")
	ErrMultipleResults = errors.New("multiple results found when one was expected")
)

// DBError carries the operation and query that failed alongside the cause.
type DBError struct {
	err     error
	context string
	query   string
	params  map[string]any
}

// NewDBError wraps err with a description of the operation.
func NewDBError(err error, context string) *DBError {
	return &DBError{err: err, context: context}
}

// WithQuery records the failing query.
func (e *DBError) WithQuery(query string) *DBError {
	e.query = query
	return e
}

// WithParams records the query parameters.
func (e *DBError) WithParams(params map[string]any) *DBError {
	e.params = params
	return e
}

func (e *DBError) Error() string {
	msg := e.context
	if e.query != "" {
		msg = fmt.Sprintf("%s (query: %s)", msg, e.query)
	}
	if len(e.params) > 0 {
		msg = fmt.Sprintf("%s (params: %v)", msg, paramKeys(e.params))
	}
	if e.err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.err)
	}
	return msg
}

func (e *DBError) Unwrap() error {
	return e.err
}

// Query returns the failing query, if recorded.
func (e *DBError) Query() string {
	return e.query
}

// paramKeys lists parameter names only; values may hold user content.
func paramKeys(params map[string]any) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WrapError adds context to err, extending an existing DBError in place.
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		if dbErr.context != "" {
			context = context + ": " + dbErr.context
		}
		dbErr.context = context
		return dbErr
	}
	return NewDBError(err, context)
}
