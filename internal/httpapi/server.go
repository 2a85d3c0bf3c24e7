package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/omarabozied5/zonak-storefront/internal/auth"
	"github.com/omarabozied5/zonak-storefront/internal/catalog"
	"github.com/omarabozied5/zonak-storefront/internal/domain"
	"github.com/omarabozied5/zonak-storefront/internal/reconciler"
	"github.com/omarabozied5/zonak-storefront/internal/recovery"
	"github.com/omarabozied5/zonak-storefront/internal/registry"
	"github.com/omarabozied5/zonak-storefront/internal/storage"
)

type Config struct {
	Reconciler         reconciler.Config
	MaxRestoreAttempts int
	// PaymentURL is the external gateway page the checkout flow redirects
	// to. The gateway itself is opaque to the storefront.
	PaymentURL string
}

// Server exposes the cart core over REST. It caches one reconciler and one
// recovery machine per identity and drops them when the registry reports the
// identity's stores were torn down.
type Server struct {
	reg     *registry.Registry
	auth    *auth.Store
	catalog catalog.Client
	kv      storage.Store
	cfg     Config

	mu          sync.Mutex
	reconcilers map[domain.Identity]*reconciler.Reconciler
	machines    map[domain.Identity]*recovery.Machine
}

func NewServer(reg *registry.Registry, authStore *auth.Store, client catalog.Client, kv storage.Store, cfg Config) *Server {
	s := &Server{
		reg:         reg,
		auth:        authStore,
		catalog:     client,
		kv:          kv,
		cfg:         cfg,
		reconcilers: make(map[domain.Identity]*reconciler.Reconciler),
		machines:    make(map[domain.Identity]*recovery.Machine),
	}
	reg.OnCleanup(s.invalidate)
	return s
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", s.GetCart)
		r.Delete("/", s.ClearCart)
		r.Get("/summary", s.GetSummary)
		r.Get("/quantity", s.GetQuantity)
		r.Put("/editing", s.SetEditingItem)
		r.Post("/items", s.AddItem)
		r.Put("/items/{line_id}", s.UpdateQuantity)
		r.Delete("/items/{line_id}", s.RemoveItem)
		r.Get("/unavailable", s.GetUnavailable)
		r.Delete("/unavailable/{line_id}", s.RemoveUnavailableItem)
	})

	r.Post("/checkout", s.Checkout)
	r.Post("/payment/retry", s.RetryRestore)

	// The gateway returns the browser to whichever of its configured URLs
	// matched the outcome; both path families land here.
	r.HandleFunc("/payment/*", s.PaymentReturn)
	r.HandleFunc("/failed/payment/*", s.PaymentReturn)
	r.HandleFunc("/success/payment/*", s.PaymentReturn)

	r.Post("/auth/login", s.Login)
	r.Post("/auth/logout", s.Logout)

	r.Get("/orders", s.GetOrders)
	r.Get("/storage/usage", s.GetStorageUsage)

	return r
}

func (s *Server) identity() domain.Identity {
	return s.auth.ActiveIdentity()
}

func (s *Server) stores() *registry.Stores {
	return s.reg.Resolve(s.identity())
}

func (s *Server) reconcilerFor(identity domain.Identity) *reconciler.Reconciler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reconcilers[identity]; ok {
		return r
	}
	r := reconciler.New(s.reg.Resolve(identity).Cart, s.catalog, s.cfg.Reconciler)
	s.reconcilers[identity] = r
	return r
}

func (s *Server) machineFor(identity domain.Identity) *recovery.Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.machines[identity]; ok {
		return m
	}
	stores := s.reg.Resolve(identity)
	m := recovery.NewMachine(stores.Cart, stores.Payment, s.cfg.MaxRestoreAttempts)
	s.machines[identity] = m
	return m
}

// invalidate drops cached per-identity instances after the registry tears
// an identity down.
func (s *Server) invalidate(identity domain.Identity) {
	s.mu.Lock()
	r := s.reconcilers[identity]
	delete(s.reconcilers, identity)
	delete(s.machines, identity)
	s.mu.Unlock()
	if r != nil {
		r.Close()
	}
}

// Close releases every cached reconciler.
func (s *Server) Close() {
	s.mu.Lock()
	recs := make([]*reconciler.Reconciler, 0, len(s.reconcilers))
	for _, r := range s.reconcilers {
		recs = append(recs, r)
	}
	s.reconcilers = make(map[domain.Identity]*reconciler.Reconciler)
	s.machines = make(map[domain.Identity]*recovery.Machine)
	s.mu.Unlock()
	for _, r := range recs {
		r.Close()
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
