package core

import "context"

// ConnectionRepository persists linked social accounts. Upsert is
// keyed on (user_id, platform): relinking the same platform replaces
// the previous credential instead of adding a row.
type ConnectionRepository interface {
	Ping(ctx context.Context) error

	Upsert(ctx context.Context, c *Connection) error
	Get(ctx context.Context, userID, platform string) (*Connection, error)
	ListByUser(ctx context.Context, userID string) ([]*Connection, error)
	Delete(ctx context.Context, userID, platform string) error
}
