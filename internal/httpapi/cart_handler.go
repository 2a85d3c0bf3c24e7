package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/omarabozied5/zonak-storefront/internal/cart"
	"github.com/omarabozied5/zonak-storefront/internal/domain"
)

type AddItemRequestDTO struct {
	LineID         string                  `json:"line_id,omitempty"`
	CatalogItemID  int64                   `json:"catalog_item_id"`
	Name           string                  `json:"name"`
	UnitPrice      float64                 `json:"unit_price"`
	Quantity       int                     `json:"quantity"`
	ImageRef       string                  `json:"image_ref,omitempty"`
	RestaurantID   string                  `json:"restaurant_id"`
	RestaurantName string                  `json:"restaurant_name"`
	Options        *domain.SelectedOptions `json:"options,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type SetEditingRequestDTO struct {
	LineID string `json:"line_id"`
}

type CartResponseDTO struct {
	Items   []domain.CartLineItem `json:"items"`
	Summary domain.CartSummary    `json:"summary"`
	Editing string                `json:"editing_item_id,omitempty"`
}

func (s *Server) cartResponse() CartResponseDTO {
	engine := s.stores().Cart
	return CartResponseDTO{
		Items:   engine.Items(),
		Summary: engine.Summary(),
		Editing: engine.EditingItem(),
	}
}

func (s *Server) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.cartResponse())
}

func (s *Server) GetSummary(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.stores().Cart.Summary())
}

func (s *Server) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.CatalogItemID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_catalog_item_id", "catalog_item_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	if req.RestaurantID == "" {
		respondError(w, http.StatusBadRequest, "invalid_restaurant_id", "restaurant_id is required")
		return
	}

	lineID := req.LineID
	if lineID == "" {
		lineID = cart.NewLineItemID(req.CatalogItemID)
	}

	item := domain.CartLineItem{
		ID:             lineID,
		CatalogItemID:  req.CatalogItemID,
		Name:           req.Name,
		UnitPrice:      req.UnitPrice,
		Quantity:       req.Quantity,
		ImageRef:       req.ImageRef,
		RestaurantID:   req.RestaurantID,
		RestaurantName: req.RestaurantName,
		Options:        req.Options,
	}

	engine := s.stores().Cart
	if err := engine.AddItem(item); err != nil {
		var verr *cart.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, "validation_failed", verr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to add item")
		return
	}

	// Keep availability data warm for the cart page.
	s.reconcilerFor(s.identity())

	respondJSON(w, http.StatusCreated, s.cartResponse())
}

func (s *Server) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "line_id")
	if lineID == "" {
		respondError(w, http.StatusBadRequest, "invalid_line_id", "line_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must not exceed 99")
		return
	}

	// Zero and below removes the line.
	s.stores().Cart.UpdateQuantity(lineID, req.Quantity)
	respondJSON(w, http.StatusOK, s.cartResponse())
}

func (s *Server) RemoveItem(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "line_id")
	if lineID == "" {
		respondError(w, http.StatusBadRequest, "invalid_line_id", "line_id is required")
		return
	}

	s.stores().Cart.RemoveItem(lineID)
	respondJSON(w, http.StatusOK, s.cartResponse())
}

func (s *Server) ClearCart(w http.ResponseWriter, r *http.Request) {
	s.stores().Cart.Clear()
	respondJSON(w, http.StatusOK, s.cartResponse())
}

func (s *Server) SetEditingItem(w http.ResponseWriter, r *http.Request) {
	var req SetEditingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s.stores().Cart.SetEditingItem(req.LineID)
	respondJSON(w, http.StatusOK, s.cartResponse())
}

func (s *Server) GetQuantity(w http.ResponseWriter, r *http.Request) {
	catalogItemID, err := strconv.ParseInt(r.URL.Query().Get("catalog_item_id"), 10, 64)
	if err != nil || catalogItemID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_catalog_item_id", "catalog_item_id must be a positive integer")
		return
	}
	restaurantID := r.URL.Query().Get("restaurant_id")

	quantity := s.stores().Cart.GetQuantityFor(catalogItemID, restaurantID)
	respondJSON(w, http.StatusOK, map[string]int{"quantity": quantity})
}

type UnavailableResponseDTO struct {
	Items       []domain.UnavailableItem `json:"items"`
	LastChecked *time.Time               `json:"last_checked,omitempty"`
	InProgress  bool                     `json:"in_progress"`
}

func (s *Server) GetUnavailable(w http.ResponseWriter, r *http.Request) {
	rec := s.reconcilerFor(s.identity())

	resp := UnavailableResponseDTO{
		Items:      rec.Unavailable(),
		InProgress: rec.InProgress(),
	}
	if t, ok := rec.LastChecked(); ok {
		resp.LastChecked = &t
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) RemoveUnavailableItem(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "line_id")
	if lineID == "" {
		respondError(w, http.StatusBadRequest, "invalid_line_id", "line_id is required")
		return
	}

	s.reconcilerFor(s.identity()).RemoveUnavailableItem(lineID)
	respondJSON(w, http.StatusOK, s.cartResponse())
}
