package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/omarabozied5/zonak-storefront/internal/orders"
	"github.com/omarabozied5/zonak-storefront/internal/recovery"
)

type CheckoutResponseDTO struct {
	PaymentURL string `json:"payment_url"`
	OrderRef   string `json:"order_ref"`
}

// Checkout snapshots the cart and hands back the external payment page URL.
// The browser leaves the storefront right after this response.
func (s *Server) Checkout(w http.ResponseWriter, r *http.Request) {
	identity := s.identity()
	engine := s.reg.Resolve(identity).Cart

	summary := engine.Summary()
	if summary.IsEmpty {
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty, nothing to checkout")
		return
	}
	if summary.HasMultipleRestaurants {
		// The engine reports the violation; resolving it is the caller's
		// decision, so checkout refuses rather than silently trimming.
		respondError(w, http.StatusConflict, "multiple_restaurants", "cart holds items from more than one restaurant")
		return
	}

	if err := s.machineFor(identity).Snapshot(); err != nil {
		respondError(w, http.StatusInternalServerError, "snapshot_failed", err.Error())
		return
	}

	orderRef := uuid.NewString()
	respondJSON(w, http.StatusOK, CheckoutResponseDTO{
		PaymentURL: fmt.Sprintf("%s?order=%s&amount=%.2f", s.cfg.PaymentURL, orderRef, summary.TotalPrice),
		OrderRef:   orderRef,
	})
}

type PaymentReturnResponseDTO struct {
	Outcome string          `json:"outcome"`
	Message string          `json:"message,omitempty"`
	Result  recovery.Result `json:"result"`
}

// PaymentReturn is where the gateway's success/failure URLs land. The full
// request URL carries the detection signals.
func (s *Server) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	identity := s.identity()
	stores := s.reg.Resolve(identity)

	// On success the machine clears both snapshot and cart, so the order
	// content has to be captured first.
	snap, hasSnap := stores.Payment.Snapshot()

	result, err := s.machineFor(identity).HandleReturn(r.URL.RequestURI(), nil)
	if err != nil && !errors.Is(err, recovery.ErrRestorationExhausted) {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	if result.Outcome == recovery.OutcomeSuccess && hasSnap {
		placed := orders.Order{
			Items:      snap.Cart.Items,
			TotalPrice: snap.Cart.TotalPrice(),
			Status:     "confirmed",
		}
		if len(snap.Cart.Items) > 0 {
			placed.RestaurantID = snap.Cart.Items[0].RestaurantID
			placed.RestaurantName = snap.Cart.Items[0].RestaurantName
		}
		stores.Orders.Add(placed)
	}

	status := http.StatusOK
	if result.Exhausted {
		status = http.StatusConflict
	}
	respondJSON(w, status, PaymentReturnResponseDTO{
		Outcome: string(result.Outcome),
		Message: result.Message(),
		Result:  result,
	})
}

// RetryRestore is the manual retry bound to a UI action, under the same
// attempt ceiling as automatic restoration.
func (s *Server) RetryRestore(w http.ResponseWriter, r *http.Request) {
	result, err := s.machineFor(s.identity()).Retry()
	if errors.Is(err, recovery.ErrRestorationExhausted) {
		respondJSON(w, http.StatusConflict, PaymentReturnResponseDTO{
			Outcome: string(result.Outcome),
			Message: result.Message(),
			Result:  result,
		})
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, PaymentReturnResponseDTO{
		Outcome: string(result.Outcome),
		Message: result.Message(),
		Result:  result,
	})
}
