package reconciler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarabozied5/zonak-storefront/internal/cart"
	"github.com/omarabozied5/zonak-storefront/internal/catalog"
	"github.com/omarabozied5/zonak-storefront/internal/domain"
	"github.com/omarabozied5/zonak-storefront/internal/storage"
)

type mockCatalog struct {
	mu    sync.Mutex
	menus map[string][]catalog.MenuItem
	err   error
	calls map[string]int
	block chan struct{} // when set, fetches wait until it closes
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		menus: make(map[string][]catalog.MenuItem),
		calls: make(map[string]int),
	}
}

func (m *mockCatalog) FetchMenuItems(_ context.Context, _ domain.Identity, restaurantID string) ([]catalog.MenuItem, error) {
	m.mu.Lock()
	m.calls[restaurantID]++
	block := m.block
	err := m.err
	menu := m.menus[restaurantID]
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return menu, nil
}

func (m *mockCatalog) callCount(restaurantID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[restaurantID]
}

func (m *mockCatalog) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func line(id string, catalogID int64, restaurantID string) domain.CartLineItem {
	return domain.CartLineItem{
		ID: id, CatalogItemID: catalogID, Name: fmt.Sprintf("item-%d", catalogID),
		UnitPrice: 10, Quantity: 1, RestaurantID: restaurantID, RestaurantName: "Resto " + restaurantID,
	}
}

func testConfig() Config {
	return Config{Debounce: 10 * time.Millisecond, FetchTimeout: time.Second}
}

func waitForCheck(t *testing.T, r *Reconciler) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := r.LastChecked()
		return ok && !r.InProgress()
	}, 2*time.Second, 5*time.Millisecond, "reconciliation pass did not finish")
}

func TestReconciler_FlagsMissingAndUnavailable(t *testing.T) {
	engine := cart.NewEngine(domain.Guest, storage.NewMemoryStore())
	mock := newMockCatalog()
	mock.menus["R1"] = []catalog.MenuItem{
		{ID: 7, Name: "Shawarma", IsAvailable: true},
		{ID: 8, Name: "Falafel", IsAvailable: false},
	}

	sut := New(engine, mock, testConfig())
	defer sut.Close()

	require.NoError(t, engine.AddItem(line("a", 7, "R1")))
	require.NoError(t, engine.AddItem(line("b", 8, "R1")))
	require.NoError(t, engine.AddItem(line("c", 9, "R1")))

	require.Eventually(t, func() bool {
		return len(sut.Unavailable()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	byLine := make(map[string]domain.UnavailableReason)
	for _, u := range sut.Unavailable() {
		byLine[u.LineItemID] = u.Reason
	}
	assert.Equal(t, domain.ReasonNotAvailable, byLine["b"])
	assert.Equal(t, domain.ReasonNotFound, byLine["c"])

	// The cart itself is untouched.
	assert.Len(t, engine.Items(), 3)
}

func TestReconciler_OneFetchPerRestaurant(t *testing.T) {
	engine := cart.NewEngine(domain.Guest, storage.NewMemoryStore())
	mock := newMockCatalog()
	mock.menus["R1"] = []catalog.MenuItem{{ID: 7, IsAvailable: true}, {ID: 8, IsAvailable: true}}

	sut := New(engine, mock, testConfig())
	defer sut.Close()

	require.NoError(t, engine.AddItem(line("a", 7, "R1")))
	require.NoError(t, engine.AddItem(line("b", 8, "R1")))

	waitForCheck(t, sut)
	assert.Equal(t, 1, mock.callCount("R1"), "one group fetch, not one per line")
}

func TestReconciler_QuantityOnlyChangeDoesNotRetrigger(t *testing.T) {
	engine := cart.NewEngine(domain.Guest, storage.NewMemoryStore())
	mock := newMockCatalog()
	mock.menus["R1"] = []catalog.MenuItem{{ID: 7, IsAvailable: true}}

	sut := New(engine, mock, testConfig())
	defer sut.Close()

	require.NoError(t, engine.AddItem(line("a", 7, "R1")))
	waitForCheck(t, sut)
	require.Equal(t, 1, mock.callCount("R1"))

	engine.UpdateQuantity("a", 5)
	time.Sleep(5 * testConfig().Debounce)
	assert.Equal(t, 1, mock.callCount("R1"), "quantity edits keep the same id set")
}

func TestReconciler_OptimisticOnFetchFault(t *testing.T) {
	engine := cart.NewEngine(domain.Guest, storage.NewMemoryStore())
	mock := newMockCatalog()
	mock.menus["R1"] = []catalog.MenuItem{{ID: 8, IsAvailable: false}}

	sut := New(engine, mock, testConfig())
	defer sut.Close()

	require.NoError(t, engine.AddItem(line("b", 8, "R1")))
	require.Eventually(t, func() bool {
		return len(sut.Unavailable()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// The catalog goes dark; a new line changes the id set and retriggers.
	mock.setErr(fmt.Errorf("upstream timeout"))
	require.NoError(t, engine.AddItem(line("c", 9, "R1")))

	require.Eventually(t, func() bool {
		return mock.callCount("R1") >= 2 && !sut.InProgress()
	}, 2*time.Second, 5*time.Millisecond)

	unavailable := sut.Unavailable()
	require.Len(t, unavailable, 1, "prior flags survive the fault; no new flags appear")
	assert.Equal(t, "b", unavailable[0].LineItemID)
	assert.Equal(t, domain.ReasonNotAvailable, unavailable[0].Reason)
}

func TestReconciler_InitialPassOnHydratedCart(t *testing.T) {
	kv := storage.NewMemoryStore()
	seed := cart.NewEngine(domain.Guest, kv)
	require.NoError(t, seed.AddItem(line("a", 9, "R1")))

	engine := cart.NewEngine(domain.Guest, kv)
	mock := newMockCatalog()
	mock.menus["R1"] = []catalog.MenuItem{{ID: 7, IsAvailable: true}}

	sut := New(engine, mock, testConfig())
	defer sut.Close()

	require.Eventually(t, func() bool {
		return len(sut.Unavailable()) == 1
	}, 2*time.Second, 5*time.Millisecond, "a non-empty hydrated cart gets an initial pass")
}

func TestReconciler_DropsCheckWhileInProgress(t *testing.T) {
	engine := cart.NewEngine(domain.Guest, storage.NewMemoryStore())
	mock := newMockCatalog()
	mock.menus["R1"] = []catalog.MenuItem{{ID: 7, IsAvailable: true}, {ID: 8, IsAvailable: true}}
	mock.block = make(chan struct{})

	sut := New(engine, mock, testConfig())
	defer sut.Close()

	require.NoError(t, engine.AddItem(line("a", 7, "R1")))
	require.Eventually(t, func() bool {
		return mock.callCount("R1") == 1
	}, 2*time.Second, 5*time.Millisecond, "first pass should start and block")

	// Second qualifying change while the first pass is stuck in its fetch.
	require.NoError(t, engine.AddItem(line("b", 8, "R1")))
	time.Sleep(5 * testConfig().Debounce)

	close(mock.block)
	waitForCheck(t, sut)

	assert.Equal(t, 1, mock.callCount("R1"), "the overlapping check is dropped, not queued")
}

func TestReconciler_RemoveUnavailableItem(t *testing.T) {
	engine := cart.NewEngine(domain.Guest, storage.NewMemoryStore())
	mock := newMockCatalog()
	mock.menus["R1"] = []catalog.MenuItem{{ID: 7, IsAvailable: true}}

	sut := New(engine, mock, testConfig())
	defer sut.Close()

	require.NoError(t, engine.AddItem(line("a", 7, "R1")))
	require.NoError(t, engine.AddItem(line("b", 9, "R1")))

	require.Eventually(t, func() bool {
		return len(sut.Unavailable()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	sut.RemoveUnavailableItem("b")

	assert.Empty(t, sut.Unavailable(), "flag cleared immediately")
	items := engine.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
}
