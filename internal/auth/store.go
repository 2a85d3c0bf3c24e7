package auth

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/omarabozied5/zonak-storefront/internal/domain"
	"github.com/omarabozied5/zonak-storefront/internal/storage"
)

// Key is global, not per-identity: this record is what defines the current
// identity.
const Key = "auth-storage"

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type record struct {
	User             *User     `json:"user,omitempty"`
	Token            string    `json:"token,omitempty"`
	IsAuthenticated  bool      `json:"is_authenticated"`
	LastLoginAttempt time.Time `json:"last_login_attempt,omitempty"`
}

// Store holds the session record. A corrupted persisted record is discarded
// and treated as signed-out.
type Store struct {
	kv storage.Store

	mu  sync.Mutex
	rec record
}

func NewStore(kv storage.Store) *Store {
	s := &Store{kv: kv}
	if raw, ok := kv.Get(Key); ok {
		if err := json.Unmarshal([]byte(raw), &s.rec); err != nil {
			log.Printf("auth: corrupted record discarded: %v", err)
			s.rec = record{}
			if e2 := kv.Remove(Key); e2 != nil {
				log.Printf("auth: failed to remove corrupted record: %v", e2)
			}
		}
	}
	return s
}

// CurrentUserID is the sole identity signal consumed by registry callers.
func (s *Store) CurrentUserID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.rec.IsAuthenticated || s.rec.User == nil {
		return "", false
	}
	return s.rec.User.ID, true
}

// ActiveIdentity resolves the identity the storefront operates under.
func (s *Store) ActiveIdentity() domain.Identity {
	id, ok := s.CurrentUserID()
	if !ok {
		return domain.Guest
	}
	return domain.ForUser(id)
}

func (s *Store) CurrentUser() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.rec.IsAuthenticated || s.rec.User == nil {
		return User{}, false
	}
	return *s.rec.User, true
}

func (s *Store) Login(user User, token string) {
	s.mu.Lock()
	s.rec = record{
		User:             &user,
		Token:            token,
		IsAuthenticated:  true,
		LastLoginAttempt: time.Now(),
	}
	s.persistLocked()
	s.mu.Unlock()
}

func (s *Store) MarkLoginAttempt() {
	s.mu.Lock()
	s.rec.LastLoginAttempt = time.Now()
	s.persistLocked()
	s.mu.Unlock()
}

func (s *Store) Logout() {
	s.mu.Lock()
	s.rec = record{}
	s.persistLocked()
	s.mu.Unlock()
}

func (s *Store) persistLocked() {
	raw, err := json.Marshal(s.rec)
	if err != nil {
		log.Printf("auth: marshal failed: %v", err)
		return
	}
	if err := s.kv.Set(Key, string(raw)); err != nil {
		log.Printf("auth: persist failed: %v", err)
	}
}
