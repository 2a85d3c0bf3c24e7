package domain

import "time"

// CheckoutSnapshot is the cart state captured immediately before redirecting
// to the external payment page, used to recover from a failed payment.
type CheckoutSnapshot struct {
	Cart       CartState `json:"cart"`
	CapturedAt time.Time `json:"captured_at"`
	Attempts   int       `json:"attempts"`
}

// Clone returns a deep copy of the snapshot.
func (s CheckoutSnapshot) Clone() CheckoutSnapshot {
	return CheckoutSnapshot{
		Cart:       s.Cart.Clone(),
		CapturedAt: s.CapturedAt,
		Attempts:   s.Attempts,
	}
}
