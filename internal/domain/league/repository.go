package league

import "context"

// Repository exposes the configured league list in display order.
type Repository interface {
	List(ctx context.Context) ([]League, error)
}
