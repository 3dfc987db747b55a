package repository

import (
	"context"

	"github.com/splax/jserrlog/internal/domain"
)

// ErrorRepository persists captured browser errors.
//
// InsertError assigns the record ID from the store's auto-increment
// sequence; callers must not set it. ListErrors re-executes a fresh query
// per call and returns records newest first (timestamp, then id,
// descending). ClearErrors removes every row atomically and succeeds on an
// empty store.
type ErrorRepository interface {
	InsertError(ctx context.Context, record *domain.ErrorRecord) error
	ListErrors(ctx context.Context) ([]domain.ErrorRecord, error)
	ClearErrors(ctx context.Context) error
	CountErrors(ctx context.Context) (int, error)
}
