package catalog

import (
	"context"

	"github.com/omarabozied5/zonak-storefront/internal/domain"
)

// MenuItem is one catalog entry of a restaurant's live menu.
type MenuItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	IsAvailable bool    `json:"is_available"`
}

// Client fetches a restaurant's live menu. A fault (timeout, network, 5xx)
// is an error, never an unavailability signal; the reconciler stays
// optimistic until a definitive catalog answer arrives.
type Client interface {
	FetchMenuItems(ctx context.Context, identity domain.Identity, restaurantID string) ([]MenuItem, error)
}
