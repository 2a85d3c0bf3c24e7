package registry

import (
	"log"
	"sync"

	"github.com/omarabozied5/zonak-storefront/internal/cart"
	"github.com/omarabozied5/zonak-storefront/internal/domain"
	"github.com/omarabozied5/zonak-storefront/internal/orders"
	"github.com/omarabozied5/zonak-storefront/internal/payment"
	"github.com/omarabozied5/zonak-storefront/internal/storage"
)

// Namespaces without a dedicated store type; their records still move with
// the identity on login and are wiped on logout.
const (
	FavoritesKeyPrefix   = "favorites-storage-"
	AddressesKeyPrefix   = "addresses-storage-"
	PreferencesKeyPrefix = "preferences-storage-"
)

// transferPrefixes are the guest namespaces copied to a freshly
// authenticated identity. Preferences exist only for authenticated users and
// payment state never crosses identities.
var transferPrefixes = []string{
	cart.KeyPrefix,
	orders.KeyPrefix,
	FavoritesKeyPrefix,
	AddressesKeyPrefix,
}

var wipePrefixes = []string{
	cart.KeyPrefix,
	orders.KeyPrefix,
	payment.KeyPrefix,
	FavoritesKeyPrefix,
	AddressesKeyPrefix,
	PreferencesKeyPrefix,
}

// Stores bundles the per-identity store instances.
type Stores struct {
	Cart    *cart.Engine
	Orders  *orders.Store
	Payment *payment.Store
}

// Registry is the sole owner of per-identity store instances. Resolve is the
// only path to an Engine or Store; nothing else constructs one, which keeps
// lifetime and identity-scoping in one place.
type Registry struct {
	kv storage.Store

	mu          sync.Mutex
	stores      map[domain.Identity]*Stores
	cleanupSubs map[int]func(domain.Identity)
	nextSub     int
}

func New(kv storage.Store) *Registry {
	return &Registry{
		kv:          kv,
		stores:      make(map[domain.Identity]*Stores),
		cleanupSubs: make(map[int]func(domain.Identity)),
	}
}

// Resolve returns the store set for the identity, constructing and hydrating
// it on first access. At most one live instance exists per identity within
// the process lifetime.
func (r *Registry) Resolve(identity domain.Identity) *Stores {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[identity]; ok {
		return s
	}
	s := &Stores{
		Cart:    cart.NewEngine(identity, r.kv),
		Orders:  orders.NewStore(identity, r.kv),
		Payment: payment.NewStore(identity, r.kv),
	}
	r.stores[identity] = s
	return s
}

// OnCleanup registers a listener invoked after an identity's stores are torn
// down, so dependents drop cached references. The returned function
// unsubscribes.
func (r *Registry) OnCleanup(fn func(domain.Identity)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.cleanupSubs[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.cleanupSubs, id)
		r.mu.Unlock()
	}
}

// OnLogin moves the guest session's records to the newly authenticated
// identity: copy each guest record to the new namespace, then delete the
// guest record. Only a guest session transfers; logging in over another
// authenticated session must never move that user's records. Best-effort
// and non-atomic; an interruption can leave a key duplicated under both
// namespaces, never lost. A transfer glitch must not block login, so faults
// are logged and skipped.
func (r *Registry) OnLogin(previous, next domain.Identity) {
	if previous == next {
		return
	}
	if !previous.IsGuest() {
		r.dropInstances(previous, next)
		return
	}

	for _, prefix := range transferPrefixes {
		guestKey := prefix + previous.String()
		value, ok := r.kv.Get(guestKey)
		if !ok {
			continue
		}
		if err := r.kv.Set(prefix+next.String(), value); err != nil {
			log.Printf("registry: transfer %s -> %s failed: %v", guestKey, next, err)
			continue
		}
		if err := r.kv.Remove(guestKey); err != nil {
			log.Printf("registry: cleanup of %s after transfer failed: %v", guestKey, err)
		}
	}

	// Both identities rehydrate on next Resolve.
	r.dropInstances(previous, next)
}

// OnLogout deletes every persisted record for the identity, and for the
// guest namespace so the next anonymous session starts empty, then discards
// the in-memory instances.
func (r *Registry) OnLogout(identity domain.Identity) {
	for _, prefix := range wipePrefixes {
		r.removeKey(prefix + identity.String())
		r.removeKey(prefix + domain.Guest.String())
	}
	r.dropInstances(identity, domain.Guest)
}

func (r *Registry) removeKey(key string) {
	if err := r.kv.Remove(key); err != nil {
		log.Printf("registry: remove %s failed: %v", key, err)
	}
}

func (r *Registry) dropInstances(identities ...domain.Identity) {
	r.mu.Lock()
	var dropped []domain.Identity
	for _, id := range identities {
		if _, ok := r.stores[id]; ok {
			delete(r.stores, id)
			dropped = append(dropped, id)
		}
	}
	fns := make([]func(domain.Identity), 0, len(r.cleanupSubs))
	for _, fn := range r.cleanupSubs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, id := range dropped {
		for _, fn := range fns {
			fn(id)
		}
	}
}
