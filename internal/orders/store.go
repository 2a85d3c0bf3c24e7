package orders

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omarabozied5/zonak-storefront/internal/domain"
	"github.com/omarabozied5/zonak-storefront/internal/storage"
)

const KeyPrefix = "orders-storage-"

// Order is one placed pickup order, captured when a payment return reports
// success.
type Order struct {
	ID             string                `json:"id"`
	Items          []domain.CartLineItem `json:"items"`
	TotalPrice     float64               `json:"total_price"`
	RestaurantID   string                `json:"restaurant_id"`
	RestaurantName string                `json:"restaurant_name"`
	Status         string                `json:"status"`
	PlacedAt       time.Time             `json:"placed_at"`
}

// Store is the per-identity persisted order history.
type Store struct {
	identity domain.Identity
	kv       storage.Store
	key      string

	mu     sync.Mutex
	orders []Order
}

func NewStore(identity domain.Identity, kv storage.Store) *Store {
	s := &Store{
		identity: identity,
		kv:       kv,
		key:      KeyPrefix + identity.String(),
	}
	if raw, ok := kv.Get(s.key); ok {
		if err := json.Unmarshal([]byte(raw), &s.orders); err != nil {
			log.Printf("orders %s: corrupted record discarded: %v", identity, err)
			s.orders = nil
			if e2 := kv.Remove(s.key); e2 != nil {
				log.Printf("orders %s: failed to remove corrupted record: %v", identity, e2)
			}
		}
	}
	return s
}

// Add records an order, filling in id and timestamp when absent, and returns
// the stored value.
func (s *Store) Add(o Order) Order {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.PlacedAt.IsZero() {
		o.PlacedAt = time.Now()
	}

	s.mu.Lock()
	s.orders = append(s.orders, o)
	s.persistLocked()
	s.mu.Unlock()
	return o
}

// List returns the order history in placement order.
func (s *Store) List() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, len(s.orders))
	copy(out, s.orders)
	return out
}

func (s *Store) persistLocked() {
	raw, err := json.Marshal(s.orders)
	if err != nil {
		log.Printf("orders %s: marshal failed: %v", s.identity, err)
		return
	}
	if err := s.kv.Set(s.key, string(raw)); err != nil {
		log.Printf("orders %s: persist failed: %v", s.identity, err)
	}
}
