package store

import (
	"context"
	"errors"
	"time"

	"salespulse/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidBatch = errors.New("invalid batch")
)

// PageCursor is a keyset pagination position: the (timestamp, line id) of the
// last record of the previous page. The compound key keeps pagination stable
// when many records share a timestamp.
type PageCursor struct {
	Timestamp time.Time
	LineID    string
}

// QueryFilter scopes a record query. After is an exclusive lower bound on
// timestamp used by incremental sync; Cursor is the keyset position used by
// full-rebuild pagination. Results are always ordered by (timestamp, line id)
// ascending.
type QueryFilter struct {
	OwnerID string
	After   *time.Time
	Cursor  *PageCursor
	Limit   int
}

// RecordStore is the remote paginated store of sales records and upload
// batches, plus the auth credential store the API bootstraps from.
type RecordStore interface {
	InsertBatch(ctx context.Context, batch domain.UploadBatch, records []domain.SalesRecord) error
	CountBatches(ctx context.Context, ownerID string) (int, error)
	CountRecords(ctx context.Context, ownerID string) (int, error)
	QueryRecords(ctx context.Context, filter QueryFilter) ([]domain.SalesRecord, error)
	ListBatches(ctx context.Context, ownerID string, limit int) ([]domain.UploadBatch, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
