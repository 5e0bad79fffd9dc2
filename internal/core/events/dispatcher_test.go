package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPublisher records publishes and fails a configurable number of times.
type mockPublisher struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	received  []Envelope
	err       error
}

// Publish implements Publisher.
func (m *mockPublisher) Publish(_ context.Context, event Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failFirst {
		return m.err
	}
	m.received = append(m.received, event)
	return nil
}

func (m *mockPublisher) snapshot() (int, []Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls, append([]Envelope(nil), m.received...)
}

// TestDispatcher_FansOut verifies every publisher receives the event.
func TestDispatcher_FansOut(t *testing.T) {
	a := &mockPublisher{}
	b := &mockPublisher{}
	d := NewDispatcher(a, b)

	event := Envelope{Type: TypeSettlementAccepted, ShipmentID: "ship-1", OccurredAt: time.Now().UTC()}
	d.Dispatch(context.Background(), event)
	d.Close()

	_, gotA := a.snapshot()
	_, gotB := b.snapshot()
	require.Len(t, gotA, 1)
	require.Len(t, gotB, 1)
	assert.Equal(t, "ship-1", gotA[0].ShipmentID)
	assert.Equal(t, TypeSettlementAccepted, gotB[0].Type)
}

// TestDispatcher_RetriesTransientFailure verifies a failing publisher is
// retried and eventually delivered to.
func TestDispatcher_RetriesTransientFailure(t *testing.T) {
	p := &mockPublisher{failFirst: 2, err: assert.AnError}
	d := NewDispatcher(p)

	d.Dispatch(context.Background(), Envelope{Type: TypeShipmentExpired, ShipmentID: "ship-2"})
	d.Close()

	calls, received := p.snapshot()
	assert.Equal(t, 3, calls)
	require.Len(t, received, 1)
	assert.Equal(t, TypeShipmentExpired, received[0].Type)
}

// TestDispatcher_DropsAfterExhaustedAttempts verifies a permanently failing
// publisher never blocks Dispatch and gives up after the attempt budget.
func TestDispatcher_DropsAfterExhaustedAttempts(t *testing.T) {
	p := &mockPublisher{failFirst: 100, err: assert.AnError}
	d := NewDispatcher(p)

	d.Dispatch(context.Background(), Envelope{Type: TypeShipmentCancelled, ShipmentID: "ship-3"})
	d.Close()

	calls, received := p.snapshot()
	assert.Equal(t, dispatchAttempts, calls)
	assert.Empty(t, received)
}
