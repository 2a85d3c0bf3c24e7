package cart

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omarabozied5/zonak-storefront/internal/domain"
	"github.com/omarabozied5/zonak-storefront/internal/storage"
)

// KeyPrefix namespaces persisted cart records; the full key is
// KeyPrefix + identity.
const KeyPrefix = "cart-storage-"

// ValidationError rejects a malformed line item before anything is applied
// or persisted.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid line item: %s", strings.Join(e.Fields, ", "))
}

func validate(item domain.CartLineItem) error {
	var fields []string
	if item.ID == "" {
		fields = append(fields, "id")
	}
	if item.Name == "" {
		fields = append(fields, "name")
	}
	if item.UnitPrice <= 0 {
		fields = append(fields, "unit_price")
	}
	if item.Quantity < 1 {
		fields = append(fields, "quantity")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// NewLineItemID mints a line id for a fresh variant of a catalog item.
// Distinct option selections of the same catalog item get distinct ids.
func NewLineItemID(catalogItemID int64) string {
	return fmt.Sprintf("%d-%d-%s", catalogItemID, time.Now().Unix(), uuid.NewString()[:8])
}

// Engine is the reactive cart store for one identity. Mutations apply in
// memory, persist synchronously, then notify subscribers. Totals are always
// derived from the items.
type Engine struct {
	identity domain.Identity
	kv       storage.Store
	key      string

	mu      sync.Mutex
	state   domain.CartState
	subs    map[int]func()
	nextSub int
}

// NewEngine hydrates the engine from the persistence adapter. A record that
// fails to decode is removed and treated as absent.
func NewEngine(identity domain.Identity, kv storage.Store) *Engine {
	e := &Engine{
		identity: identity,
		kv:       kv,
		key:      KeyPrefix + identity.String(),
		subs:     make(map[int]func()),
	}
	if raw, ok := kv.Get(e.key); ok {
		if err := json.Unmarshal([]byte(raw), &e.state); err != nil {
			log.Printf("cart %s: corrupted record discarded: %v", identity, err)
			e.state = domain.CartState{}
			if e2 := kv.Remove(e.key); e2 != nil {
				log.Printf("cart %s: failed to remove corrupted record: %v", identity, e2)
			}
		}
	}
	return e
}

func (e *Engine) Identity() domain.Identity {
	return e.identity
}

// Subscribe registers a listener called after every successful mutation.
// The returned function unsubscribes.
func (e *Engine) Subscribe(fn func()) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// AddItem appends the line, or merges quantities when a line with the same
// id already exists. The item is validated before anything is applied.
func (e *Engine) AddItem(item domain.CartLineItem) error {
	if err := validate(item); err != nil {
		return err
	}

	e.mu.Lock()
	merged := false
	for i := range e.state.Items {
		if e.state.Items[i].ID == item.ID {
			e.state.Items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		// Detach from the caller's Options pointer; later caller mutations
		// must not reach engine state.
		e.state.Items = append(e.state.Items, item.Clone())
	}
	e.persistLocked()
	e.mu.Unlock()

	e.notify()
	return nil
}

// RemoveItem deletes the line. Removing an absent line is a no-op.
func (e *Engine) RemoveItem(lineItemID string) {
	e.mu.Lock()
	changed := false
	for i := range e.state.Items {
		if e.state.Items[i].ID == lineItemID {
			e.state.Items = append(e.state.Items[:i], e.state.Items[i+1:]...)
			changed = true
			break
		}
	}
	if changed {
		if e.state.EditingItemID == lineItemID {
			e.state.EditingItemID = ""
		}
		e.persistLocked()
	}
	e.mu.Unlock()

	if changed {
		e.notify()
	}
}

// UpdateQuantity replaces the line's quantity; a quantity of zero or less
// removes the line.
func (e *Engine) UpdateQuantity(lineItemID string, quantity int) {
	if quantity <= 0 {
		e.RemoveItem(lineItemID)
		return
	}

	e.mu.Lock()
	changed := false
	for i := range e.state.Items {
		if e.state.Items[i].ID == lineItemID {
			if e.state.Items[i].Quantity != quantity {
				e.state.Items[i].Quantity = quantity
				changed = true
			}
			break
		}
	}
	if changed {
		e.persistLocked()
	}
	e.mu.Unlock()

	if changed {
		e.notify()
	}
}

// Clear empties the cart for this identity.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.state = domain.CartState{}
	e.persistLocked()
	e.mu.Unlock()

	e.notify()
}

// SetEditingItem marks at most one line as being edited; an empty id clears
// the marker.
func (e *Engine) SetEditingItem(lineItemID string) {
	e.mu.Lock()
	e.state.EditingItemID = lineItemID
	e.persistLocked()
	e.mu.Unlock()

	e.notify()
}

func (e *Engine) EditingItem() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.EditingItemID
}

// GetQuantityFor sums quantities across every variant line of the catalog
// item. An empty restaurantID matches any restaurant.
func (e *Engine) GetQuantityFor(catalogItemID int64, restaurantID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	var total int
	for _, it := range e.state.Items {
		if it.CatalogItemID != catalogItemID {
			continue
		}
		if restaurantID != "" && it.RestaurantID != restaurantID {
			continue
		}
		total += it.Quantity
	}
	return total
}

// HasCustomizations reports whether "add" can short-circuit to a direct
// insert or must detour through the option picker first.
func (e *Engine) HasCustomizations(item domain.CartLineItem) bool {
	return item.HasCustomizations()
}

// State returns a deep copy of the current cart state.
func (e *Engine) State() domain.CartState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Items returns a deep copy of the line items in insertion order.
func (e *Engine) Items() []domain.CartLineItem {
	return e.State().Items
}

func (e *Engine) Summary() domain.CartSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Summary()
}

func (e *Engine) TotalPrice() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.TotalPrice()
}

func (e *Engine) TotalItems() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.TotalItems()
}

// persistLocked writes the in-memory state through the adapter. Persistence
// is best-effort: a write fault loses at most this mutation, never corrupts
// earlier state.
func (e *Engine) persistLocked() {
	raw, err := json.Marshal(e.state)
	if err != nil {
		log.Printf("cart %s: marshal failed: %v", e.identity, err)
		return
	}
	if err := e.kv.Set(e.key, string(raw)); err != nil {
		log.Printf("cart %s: persist failed: %v", e.identity, err)
	}
}

func (e *Engine) notify() {
	e.mu.Lock()
	fns := make([]func(), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
