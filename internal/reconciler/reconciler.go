package reconciler

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/omarabozied5/zonak-storefront/internal/cart"
	"github.com/omarabozied5/zonak-storefront/internal/catalog"
	"github.com/omarabozied5/zonak-storefront/internal/domain"
)

const (
	DefaultDebounce     = 500 * time.Millisecond
	DefaultFetchTimeout = 10 * time.Second
)

type Config struct {
	Debounce     time.Duration
	FetchTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	return c
}

// Reconciler revalidates one engine's cart against live restaurant catalogs.
// It watches the cart's set of line-item ids (quantity-only edits do not
// qualify), debounces qualifying changes, fetches each restaurant's menu
// once per pass, and publishes an unavailable-items set. It never mutates
// the cart on its own.
type Reconciler struct {
	cfg      Config
	engine   *cart.Engine
	catalog  catalog.Client
	identity domain.Identity

	mu          sync.Mutex
	timer       *time.Timer
	lastIDSet   string
	inProgress  bool
	unavailable []domain.UnavailableItem
	lastChecked time.Time
	hasChecked  bool
	closed      bool
	subs        map[int]func()
	nextSub     int

	sfg         singleflight.Group
	unsubscribe func()
}

// New wires a reconciler to the engine and schedules an initial pass when
// the hydrated cart is non-empty.
func New(engine *cart.Engine, client catalog.Client, cfg Config) *Reconciler {
	r := &Reconciler{
		cfg:      cfg.withDefaults(),
		engine:   engine,
		catalog:  client,
		identity: engine.Identity(),
		subs:     make(map[int]func()),
	}
	r.unsubscribe = engine.Subscribe(r.onCartChange)

	if items := engine.Items(); len(items) > 0 {
		r.mu.Lock()
		r.lastIDSet = signature(items)
		r.armLocked()
		r.mu.Unlock()
	}
	return r
}

// Subscribe registers a listener called after each completed pass. The
// returned function unsubscribes.
func (r *Reconciler) Subscribe(fn func()) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// Unavailable returns the set published by the latest pass.
func (r *Reconciler) Unavailable() []domain.UnavailableItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.UnavailableItem, len(r.unavailable))
	copy(out, r.unavailable)
	return out
}

func (r *Reconciler) LastChecked() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastChecked, r.hasChecked
}

func (r *Reconciler) InProgress() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inProgress
}

// RemoveUnavailableItem removes the flagged line from the cart and clears
// its flag. This is the only cart mutation the reconciler performs, and only
// on explicit request.
func (r *Reconciler) RemoveUnavailableItem(lineItemID string) {
	r.engine.RemoveItem(lineItemID)

	r.mu.Lock()
	kept := r.unavailable[:0]
	for _, u := range r.unavailable {
		if u.LineItemID != lineItemID {
			kept = append(kept, u)
		}
	}
	r.unavailable = kept
	r.mu.Unlock()

	r.notify()
}

// Close cancels any pending pass and detaches from the engine.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()
	r.unsubscribe()
}

func (r *Reconciler) onCartChange() {
	sig := signature(r.engine.Items())

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || sig == r.lastIDSet {
		return
	}
	r.lastIDSet = sig
	r.armLocked()
}

// armLocked resets the debounce window; every qualifying change cancels the
// pending timer and starts a fresh one.
func (r *Reconciler) armLocked() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.cfg.Debounce, r.runCheck)
}

func (r *Reconciler) runCheck() {
	r.mu.Lock()
	if r.closed || r.inProgress {
		// A pass is already running: drop, don't queue. The next id-set
		// change re-arms the timer.
		r.mu.Unlock()
		return
	}
	r.inProgress = true
	prior := make([]domain.UnavailableItem, len(r.unavailable))
	copy(prior, r.unavailable)
	r.mu.Unlock()

	found := r.check(r.engine.Items(), prior)

	r.mu.Lock()
	r.unavailable = found
	r.lastChecked = time.Now()
	r.hasChecked = true
	r.inProgress = false
	r.mu.Unlock()

	r.notify()
}

// check fetches each restaurant's catalog once and classifies every line.
// A fetch fault is optimistic: it adds no flags for that restaurant, and
// flags from the previous pass are carried over unchanged rather than
// cleared by silence.
func (r *Reconciler) check(items []domain.CartLineItem, prior []domain.UnavailableItem) []domain.UnavailableItem {
	groups := make(map[string][]domain.CartLineItem)
	for _, it := range items {
		groups[it.RestaurantID] = append(groups[it.RestaurantID], it)
	}

	found := make([]domain.UnavailableItem, 0)
	for restaurantID, lines := range groups {
		menu, err := r.fetchMenu(restaurantID)
		if err != nil {
			log.Printf("reconciler %s: catalog fetch for restaurant %s failed, keeping items optimistic: %v",
				r.identity, restaurantID, err)
			lineIDs := make(map[string]bool, len(lines))
			for _, line := range lines {
				lineIDs[line.ID] = true
			}
			for _, u := range prior {
				if lineIDs[u.LineItemID] {
					found = append(found, u)
				}
			}
			continue
		}

		available := make(map[int64]bool, len(menu))
		for _, m := range menu {
			available[m.ID] = m.IsAvailable
		}

		for _, line := range lines {
			isAvailable, present := available[line.CatalogItemID]
			switch {
			case !present:
				found = append(found, domain.UnavailableItem{
					LineItemID:     line.ID,
					Name:           line.Name,
					RestaurantName: line.RestaurantName,
					Reason:         domain.ReasonNotFound,
				})
			case !isAvailable:
				found = append(found, domain.UnavailableItem{
					LineItemID:     line.ID,
					Name:           line.Name,
					RestaurantName: line.RestaurantName,
					Reason:         domain.ReasonNotAvailable,
				})
			}
		}
	}
	return found
}

// fetchMenu collapses concurrent fetches of the same restaurant into one
// request.
func (r *Reconciler) fetchMenu(restaurantID string) ([]catalog.MenuItem, error) {
	v, err, _ := r.sfg.Do(restaurantID, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.FetchTimeout)
		defer cancel()
		return r.catalog.FetchMenuItems(ctx, r.identity, restaurantID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]catalog.MenuItem), nil
}

func (r *Reconciler) notify() {
	r.mu.Lock()
	fns := make([]func(), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func signature(items []domain.CartLineItem) string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, "\n")
}
