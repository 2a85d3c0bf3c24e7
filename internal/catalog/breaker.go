package catalog

import (
	"context"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/omarabozied5/zonak-storefront/internal/domain"
)

// BreakerClient stops hammering a failing menu API. While the breaker is
// open, fetches fail fast and the reconciler's fault handling keeps prior
// availability flags in place.
type BreakerClient struct {
	inner Client
	cb    *gobreaker.CircuitBreaker[[]MenuItem]
}

func NewBreakerClient(inner Client) *BreakerClient {
	return &BreakerClient{
		inner: inner,
		cb: gobreaker.NewCircuitBreaker[[]MenuItem](gobreaker.Settings{
			Name:        "catalog",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("catalog breaker %s: %s -> %s", name, from, to)
			},
		}),
	}
}

func (c *BreakerClient) FetchMenuItems(ctx context.Context, identity domain.Identity, restaurantID string) ([]MenuItem, error) {
	return c.cb.Execute(func() ([]MenuItem, error) {
		return c.inner.FetchMenuItems(ctx, identity, restaurantID)
	})
}
