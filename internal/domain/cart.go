package domain

// SelectedOptions carries the option-selection combination that makes one
// cart line a distinct variant of a catalog item.
type SelectedOptions struct {
	Size     string            `json:"size,omitempty"`
	Required map[string]string `json:"required,omitempty"` // option group id -> chosen option id
	Optional []string          `json:"optional,omitempty"` // ids of picked optional add-ons
	Notes    string            `json:"notes,omitempty"`
}

func (o *SelectedOptions) IsZero() bool {
	if o == nil {
		return true
	}
	return o.Size == "" && len(o.Required) == 0 && len(o.Optional) == 0 && o.Notes == ""
}

func (o *SelectedOptions) clone() *SelectedOptions {
	if o == nil {
		return nil
	}
	c := &SelectedOptions{Size: o.Size, Notes: o.Notes}
	if o.Required != nil {
		c.Required = make(map[string]string, len(o.Required))
		for k, v := range o.Required {
			c.Required[k] = v
		}
	}
	if o.Optional != nil {
		c.Optional = append([]string(nil), o.Optional...)
	}
	return c
}

// CartLineItem is one entry in a cart: a catalog item plus a specific
// option-selection combination. The same catalog item may appear as several
// lines when the selections differ, distinguished by ID.
type CartLineItem struct {
	ID             string           `json:"id"`
	CatalogItemID  int64            `json:"catalog_item_id"`
	Name           string           `json:"name"`
	UnitPrice      float64          `json:"unit_price"`
	Quantity       int              `json:"quantity"`
	ImageRef       string           `json:"image_ref,omitempty"`
	RestaurantID   string           `json:"restaurant_id"`
	RestaurantName string           `json:"restaurant_name"`
	Options        *SelectedOptions `json:"options,omitempty"`
}

func (i CartLineItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// HasCustomizations reports whether the line carries any option selection or
// notes. The storefront uses it to decide between a direct add and a detour
// through the option picker.
func (i CartLineItem) HasCustomizations() bool {
	return !i.Options.IsZero()
}

// Clone returns a deep copy, detached from the caller's Options pointer.
func (i CartLineItem) Clone() CartLineItem {
	c := i
	c.Options = i.Options.clone()
	return c
}

// CartState is the full cart content for one identity. Items keep insertion
// order. Totals are always derived from the items, never stored.
type CartState struct {
	Items         []CartLineItem `json:"items"`
	EditingItemID string         `json:"editing_item_id,omitempty"`
}

func (s CartState) TotalPrice() float64 {
	var total float64
	for _, it := range s.Items {
		total += it.Subtotal()
	}
	return total
}

func (s CartState) TotalItems() int {
	var n int
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

func (s CartState) IsEmpty() bool {
	return len(s.Items) == 0
}

// Clone returns a deep copy, safe to hold across later mutations.
func (s CartState) Clone() CartState {
	c := CartState{EditingItemID: s.EditingItemID}
	if s.Items != nil {
		c.Items = make([]CartLineItem, len(s.Items))
		for i, it := range s.Items {
			c.Items[i] = it.Clone()
		}
	}
	return c
}

// CartSummary is the derived view the storefront uses to detect
// single-restaurant violations. The engine reports them, it does not fix them.
type CartSummary struct {
	TotalItems             int            `json:"total_items"`
	TotalPrice             float64        `json:"total_price"`
	RestaurantGroups       map[string]int `json:"restaurant_groups"`
	RestaurantCount        int            `json:"restaurant_count"`
	HasMultipleRestaurants bool           `json:"has_multiple_restaurants"`
	IsEmpty                bool           `json:"is_empty"`
}

func (s CartState) Summary() CartSummary {
	groups := make(map[string]int)
	for _, it := range s.Items {
		groups[it.RestaurantID]++
	}
	return CartSummary{
		TotalItems:             s.TotalItems(),
		TotalPrice:             s.TotalPrice(),
		RestaurantGroups:       groups,
		RestaurantCount:        len(groups),
		HasMultipleRestaurants: len(groups) > 1,
		IsEmpty:                len(s.Items) == 0,
	}
}
