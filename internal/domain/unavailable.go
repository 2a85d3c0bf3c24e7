package domain

// UnavailableReason explains why a reconciliation pass flagged a line item.
type UnavailableReason string

const (
	ReasonNotFound     UnavailableReason = "not_found"
	ReasonNotAvailable UnavailableReason = "not_available"
	// ReasonAPIError exists on the wire but is not emitted by the reconciler:
	// infrastructure faults are optimistic and leave items unflagged.
	ReasonAPIError UnavailableReason = "api_error"
)

// UnavailableItem is transient reconciliation output. It is recomputed on
// every pass and never persisted.
type UnavailableItem struct {
	LineItemID     string            `json:"line_item_id"`
	Name           string            `json:"name"`
	RestaurantName string            `json:"restaurant_name"`
	Reason         UnavailableReason `json:"reason"`
}
