package domain

import (
	"context"
)

// ClientRepository defines the interface for managing Client data.
// Write operations return the client as reloaded from the store after the write.
type ClientRepository interface {
	Add(ctx context.Context, fields ContactFields) (*Client, error)
	// Load reports false when no client has the given ID.
	Load(ctx context.Context, id int64) (*Client, bool, error)
	// LoadMany returns only the IDs that exist.
	LoadMany(ctx context.Context, ids []int64) (map[int64]*Client, error)
	// Update returns ErrNotFound if the client does not exist.
	Update(ctx context.Context, client *Client) (*Client, error)
	Delete(ctx context.Context, id int64) error
	AddPhoneNumber(ctx context.Context, id int64, number string) (*Client, bool, error)
	DeletePhoneNumber(ctx context.Context, id int64, number string) (*Client, bool, error)
	// Search reports false when the filter is empty and no search was performed.
	Search(ctx context.Context, filter SearchFilter) (map[int64]*Client, bool, error)
}

// SchemaManager creates and drops the client tables.
type SchemaManager interface {
	EnsureTables(ctx context.Context) error
	DropTables(ctx context.Context) error
	Setup(ctx context.Context) error
}
