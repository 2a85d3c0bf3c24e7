package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartState_TotalsAreDerived(t *testing.T) {
	state := CartState{
		Items: []CartLineItem{
			{ID: "a", CatalogItemID: 1, Name: "Shawarma", UnitPrice: 20, Quantity: 1, RestaurantID: "R1"},
			{ID: "b", CatalogItemID: 2, Name: "Fries", UnitPrice: 10, Quantity: 3, RestaurantID: "R1"},
		},
	}

	assert.Equal(t, 50.0, state.TotalPrice())
	assert.Equal(t, 4, state.TotalItems())

	state.Items[1].Quantity = 5
	assert.Equal(t, 70.0, state.TotalPrice(), "totals must track item mutations, not a stored value")
	assert.Equal(t, 6, state.TotalItems())
}

func TestCartSummary_DetectsMultipleRestaurants(t *testing.T) {
	state := CartState{
		Items: []CartLineItem{
			{ID: "a", CatalogItemID: 1, Name: "Shawarma", UnitPrice: 20, Quantity: 1, RestaurantID: "R1"},
			{ID: "b", CatalogItemID: 9, Name: "Burger", UnitPrice: 30, Quantity: 2, RestaurantID: "R2"},
		},
	}

	summary := state.Summary()
	assert.True(t, summary.HasMultipleRestaurants)
	assert.Equal(t, 2, summary.RestaurantCount)
	assert.Equal(t, map[string]int{"R1": 1, "R2": 1}, summary.RestaurantGroups)
	assert.False(t, summary.IsEmpty)
	// The violation is reported, not fixed: both items are still there.
	assert.Len(t, state.Items, 2)
}

func TestCartSummary_Empty(t *testing.T) {
	summary := CartState{}.Summary()
	assert.True(t, summary.IsEmpty)
	assert.Equal(t, 0, summary.RestaurantCount)
	assert.False(t, summary.HasMultipleRestaurants)
}

func TestCartState_CloneIsDeep(t *testing.T) {
	state := CartState{
		Items: []CartLineItem{
			{
				ID: "a", CatalogItemID: 1, Name: "Shawarma", UnitPrice: 20, Quantity: 1,
				RestaurantID: "R1",
				Options: &SelectedOptions{
					Size:     "large",
					Required: map[string]string{"bread": "saj"},
					Optional: []string{"garlic"},
				},
			},
		},
		EditingItemID: "a",
	}

	clone := state.Clone()
	clone.Items[0].Quantity = 99
	clone.Items[0].Options.Size = "small"
	clone.Items[0].Options.Required["bread"] = "bun"
	clone.Items[0].Options.Optional[0] = "pickles"

	assert.Equal(t, 1, state.Items[0].Quantity)
	assert.Equal(t, "large", state.Items[0].Options.Size)
	assert.Equal(t, "saj", state.Items[0].Options.Required["bread"])
	assert.Equal(t, []string{"garlic"}, state.Items[0].Options.Optional)
}

func TestCartLineItem_HasCustomizations(t *testing.T) {
	plain := CartLineItem{ID: "a", Name: "Shawarma", UnitPrice: 20, Quantity: 1}
	assert.False(t, plain.HasCustomizations())

	plain.Options = &SelectedOptions{}
	assert.False(t, plain.HasCustomizations(), "empty options are no customization")

	cases := []SelectedOptions{
		{Size: "large"},
		{Required: map[string]string{"bread": "saj"}},
		{Optional: []string{"garlic"}},
		{Notes: "no onions"},
	}
	for _, opts := range cases {
		o := opts
		item := CartLineItem{ID: "a", Name: "Shawarma", UnitPrice: 20, Quantity: 1, Options: &o}
		assert.True(t, item.HasCustomizations())
	}
}

func TestForUser(t *testing.T) {
	assert.Equal(t, Guest, ForUser(""))
	assert.Equal(t, Identity("u-42"), ForUser("u-42"))
	assert.True(t, ForUser("").IsGuest())
	assert.False(t, ForUser("u-42").IsGuest())
}
