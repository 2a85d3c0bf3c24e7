package recovery

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/omarabozied5/zonak-storefront/internal/cart"
	"github.com/omarabozied5/zonak-storefront/internal/domain"
	"github.com/omarabozied5/zonak-storefront/internal/payment"
)

// DefaultMaxAttempts bounds how many failed-return restorations one snapshot
// may consume before the machine gives up.
const DefaultMaxAttempts = 3

// ErrRestorationExhausted is returned once the attempt ceiling is reached;
// the snapshot is discarded so a redirect-failure loop cannot keep re-adding
// stale items.
var ErrRestorationExhausted = errors.New("restoration attempt limit reached")

type State string

const (
	StateIdle           State = "idle"
	StateSnapshotTaken  State = "snapshot_taken"
	StateAwaitingReturn State = "awaiting_return"
	StateRestored       State = "restored"
	StateDiscarded      State = "discarded"
)

// Result summarizes one return-handling pass. Partial restoration is
// reported, never silently swallowed.
type Result struct {
	Outcome   Outcome `json:"outcome"`
	Restored  int     `json:"restored"`
	Skipped   int     `json:"skipped"`
	Exhausted bool    `json:"exhausted"`
}

// Message renders the user-facing notice for a return-handling pass.
func (r Result) Message() string {
	switch {
	case r.Outcome == OutcomeSuccess:
		return "payment confirmed, order placed"
	case r.Outcome == OutcomeNone:
		return ""
	case r.Exhausted:
		return "restoration limit reached, cart was not recovered"
	case r.Skipped > 0:
		return fmt.Sprintf("cart partially restored with %d items skipped", r.Skipped)
	case r.Restored > 0:
		return "cart fully restored"
	default:
		return "nothing to restore"
	}
}

// Machine drives the payment-redirect recovery flow for one identity:
// snapshot before the redirect, inspect the return page, restore or discard.
type Machine struct {
	engine      *cart.Engine
	payments    *payment.Store
	maxAttempts int

	mu    sync.Mutex
	state State
}

func NewMachine(engine *cart.Engine, payments *payment.Store, maxAttempts int) *Machine {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	m := &Machine{
		engine:      engine,
		payments:    payments,
		maxAttempts: maxAttempts,
		state:       StateIdle,
	}
	// A snapshot surviving a process restart means the redirect already
	// happened and the return has not been handled yet.
	if _, ok := payments.Snapshot(); ok {
		m.state = StateAwaitingReturn
	}
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot captures the current cart immediately before the redirect. The
// browser navigates away right after, so the machine moves straight to
// awaiting the return.
func (m *Machine) Snapshot() error {
	state := m.engine.State()
	if state.IsEmpty() {
		return fmt.Errorf("refusing to snapshot an empty cart")
	}

	m.payments.SaveSnapshot(domain.CheckoutSnapshot{
		Cart:       state,
		CapturedAt: time.Now(),
	})

	m.mu.Lock()
	m.state = StateAwaitingReturn
	m.mu.Unlock()
	return nil
}

// HandleReturn inspects the page the gateway sent the browser back to and
// restores or discards the snapshot accordingly. An unrecognized page is a
// no-op.
func (m *Machine) HandleReturn(rawURL string, navState map[string]any) (Result, error) {
	switch DetectOutcome(rawURL, navState) {
	case OutcomeSuccess:
		return m.discard(), nil
	case OutcomeFailure:
		m.payments.SetLastOutcome(string(OutcomeFailure))
		return m.restore()
	default:
		return Result{Outcome: OutcomeNone}, nil
	}
}

// Retry is the manual entry point bound to a UI action, subject to the same
// attempt ceiling as automatic restoration.
func (m *Machine) Retry() (Result, error) {
	return m.restore()
}

// discard is the success path: the order is presumed placed, so the snapshot,
// the payment flags and the live cart all go.
func (m *Machine) discard() Result {
	m.payments.SetLastOutcome(string(OutcomeSuccess))
	m.payments.ClearSnapshot()
	m.engine.Clear()

	m.mu.Lock()
	m.state = StateDiscarded
	m.mu.Unlock()

	log.Printf("recovery %s: payment succeeded, snapshot discarded", m.engine.Identity())
	return Result{Outcome: OutcomeSuccess}
}

func (m *Machine) restore() (Result, error) {
	snap, ok := m.payments.Snapshot()
	if !ok {
		return Result{Outcome: OutcomeFailure}, nil
	}

	if snap.Attempts >= m.maxAttempts {
		m.payments.ClearSnapshot()
		m.mu.Lock()
		m.state = StateDiscarded
		m.mu.Unlock()
		log.Printf("recovery %s: attempt ceiling reached, snapshot discarded", m.engine.Identity())
		return Result{Outcome: OutcomeFailure, Exhausted: true}, ErrRestorationExhausted
	}

	// The attempt is spent whatever happens next.
	m.payments.IncrementAttempts()

	result := Result{Outcome: OutcomeFailure}
	if m.engine.State().IsEmpty() {
		for _, item := range snap.Cart.Items {
			if err := m.engine.AddItem(item); err != nil {
				log.Printf("recovery %s: skipping line %q: %v", m.engine.Identity(), item.ID, err)
				result.Skipped++
				continue
			}
			result.Restored++
		}
	}

	if result.Restored > 0 {
		// Consumed by a successful restore.
		m.payments.ClearSnapshot()
		m.mu.Lock()
		m.state = StateRestored
		m.mu.Unlock()
	}

	log.Printf("recovery %s: restore pass finished, restored=%d skipped=%d",
		m.engine.Identity(), result.Restored, result.Skipped)
	return result, nil
}
