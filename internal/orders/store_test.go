package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarabozied5/zonak-storefront/internal/domain"
	"github.com/omarabozied5/zonak-storefront/internal/storage"
)

func TestAdd_FillsIDAndTimestamp(t *testing.T) {
	sut := NewStore(domain.Identity("u-1"), storage.NewMemoryStore())

	stored := sut.Add(Order{
		Items:          []domain.CartLineItem{{ID: "7-1700000000-abc", CatalogItemID: 7, Name: "Shawarma", UnitPrice: 20, Quantity: 2}},
		TotalPrice:     40,
		RestaurantID:   "R1",
		RestaurantName: "Al Tazaj",
		Status:         "confirmed",
	})

	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.PlacedAt.IsZero())
}

func TestList_PreservesPlacementOrder(t *testing.T) {
	kv := storage.NewMemoryStore()
	sut := NewStore(domain.Identity("u-1"), kv)

	first := sut.Add(Order{Status: "confirmed", TotalPrice: 40})
	second := sut.Add(Order{Status: "confirmed", TotalPrice: 25})

	history := sut.List()
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)

	// History survives a rehydration under the same identity.
	rehydrated := NewStore(domain.Identity("u-1"), kv)
	assert.Len(t, rehydrated.List(), 2)

	// Other identities see nothing.
	assert.Empty(t, NewStore(domain.Guest, kv).List())
}

func TestNewStore_CorruptedRecordDiscarded(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(KeyPrefix+"u-1", "[broken"))

	sut := NewStore(domain.Identity("u-1"), kv)

	assert.Empty(t, sut.List())
	_, ok := kv.Get(KeyPrefix + "u-1")
	assert.False(t, ok)
}
