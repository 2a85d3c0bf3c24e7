package payment

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/omarabozied5/zonak-storefront/internal/domain"
	"github.com/omarabozied5/zonak-storefront/internal/storage"
)

const KeyPrefix = "payment-storage-"

// record is the persisted payment state for one identity: the checkout
// snapshot taken before the redirect, how many restoration attempts have
// been spent on it, and the last observed return outcome.
type record struct {
	Snapshot    *domain.CheckoutSnapshot `json:"snapshot,omitempty"`
	LastOutcome string                   `json:"last_outcome,omitempty"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// Store holds the payment-redirect state for one identity.
type Store struct {
	identity domain.Identity
	kv       storage.Store
	key      string

	mu  sync.Mutex
	rec record
}

func NewStore(identity domain.Identity, kv storage.Store) *Store {
	s := &Store{
		identity: identity,
		kv:       kv,
		key:      KeyPrefix + identity.String(),
	}
	if raw, ok := kv.Get(s.key); ok {
		if err := json.Unmarshal([]byte(raw), &s.rec); err != nil {
			log.Printf("payment %s: corrupted record discarded: %v", identity, err)
			s.rec = record{}
			if e2 := kv.Remove(s.key); e2 != nil {
				log.Printf("payment %s: failed to remove corrupted record: %v", identity, e2)
			}
		}
	}
	return s
}

// SaveSnapshot stores a fresh snapshot with a zeroed attempt counter,
// replacing any previous one.
func (s *Store) SaveSnapshot(snap domain.CheckoutSnapshot) {
	s.mu.Lock()
	snap.Attempts = 0
	s.rec.Snapshot = &snap
	s.persistLocked()
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the stored snapshot, if any.
func (s *Store) Snapshot() (domain.CheckoutSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec.Snapshot == nil {
		return domain.CheckoutSnapshot{}, false
	}
	return s.rec.Snapshot.Clone(), true
}

// IncrementAttempts bumps the snapshot's attempt counter and returns the new
// value. Without a snapshot it reports zero.
func (s *Store) IncrementAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec.Snapshot == nil {
		return 0
	}
	s.rec.Snapshot.Attempts++
	s.persistLocked()
	return s.rec.Snapshot.Attempts
}

// ClearSnapshot drops the snapshot and attempt counter.
func (s *Store) ClearSnapshot() {
	s.mu.Lock()
	s.rec.Snapshot = nil
	s.persistLocked()
	s.mu.Unlock()
}

func (s *Store) SetLastOutcome(outcome string) {
	s.mu.Lock()
	s.rec.LastOutcome = outcome
	s.persistLocked()
	s.mu.Unlock()
}

func (s *Store) LastOutcome() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.LastOutcome
}

func (s *Store) persistLocked() {
	s.rec.UpdatedAt = time.Now()
	raw, err := json.Marshal(s.rec)
	if err != nil {
		log.Printf("payment %s: marshal failed: %v", s.identity, err)
		return
	}
	if err := s.kv.Set(s.key, string(raw)); err != nil {
		log.Printf("payment %s: persist failed: %v", s.identity, err)
	}
}
