package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/omarabozied5/zonak-storefront/internal/auth"
	"github.com/omarabozied5/zonak-storefront/internal/domain"
	"github.com/omarabozied5/zonak-storefront/internal/storage"
)

type LoginRequestDTO struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Token  string `json:"token"`
}

type LoginResponseDTO struct {
	Identity string `json:"identity"`
}

// Login records the authenticated session and migrates the guest session's
// data to the new identity. Token issuance itself happens elsewhere; this
// endpoint trusts what it is handed.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.UserID == "" || req.Token == "" {
		respondError(w, http.StatusBadRequest, "invalid_credentials", "user_id and token are required")
		return
	}

	previous := s.auth.ActiveIdentity()
	s.auth.Login(auth.User{ID: req.UserID, Name: req.Name, Phone: req.Phone}, req.Token)
	next := domain.ForUser(req.UserID)

	// Best-effort guest transfer; a glitch never blocks login.
	s.reg.OnLogin(previous, next)

	respondJSON(w, http.StatusOK, LoginResponseDTO{Identity: next.String()})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	identity := s.auth.ActiveIdentity()
	s.auth.Logout()
	s.reg.OnLogout(identity)

	respondJSON(w, http.StatusOK, map[string]string{"identity": domain.Guest.String()})
}

func (s *Server) GetOrders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.stores().Orders.List())
}

type StorageUsageResponseDTO struct {
	Supported bool          `json:"supported"`
	Usage     storage.Usage `json:"usage"`
}

func (s *Server) GetStorageUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.kv.EstimateSize()
	if errors.Is(err, storage.ErrSizeUnsupported) {
		respondJSON(w, http.StatusOK, StorageUsageResponseDTO{Supported: false})
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to read storage usage")
		return
	}
	respondJSON(w, http.StatusOK, StorageUsageResponseDTO{Supported: true, Usage: usage})
}
