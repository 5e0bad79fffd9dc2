package events

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"freight-auction/internal/core/logger"

	"go.uber.org/zap"
)

const (
	dispatchAttempts = 3
	dispatchTimeout  = 5 * time.Second
	backoffBase      = 100 * time.Millisecond
	backoffMax       = 2 * time.Second
)

// Dispatcher fans events out to every registered publisher asynchronously.
// Each publisher gets a bounded number of attempts with jittered exponential
// backoff; exhausted attempts are logged and dropped, never surfaced into
// the transaction that produced the event.
type Dispatcher struct {
	publishers []Publisher
	wg         sync.WaitGroup
}

// NewDispatcher creates a Dispatcher over the given publishers.
func NewDispatcher(publishers ...Publisher) *Dispatcher {
	return &Dispatcher{publishers: publishers}
}

// Dispatch schedules the event for delivery and returns immediately.
func (d *Dispatcher) Dispatch(_ context.Context, event Envelope) {
	for _, p := range d.publishers {
		d.wg.Add(1)
		go func(p Publisher) {
			defer d.wg.Done()
			d.deliver(p, event)
		}(p)
	}
}

// Close waits for in-flight deliveries to finish.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(p Publisher, event Envelope) {
	b := newBackoff(backoffBase, backoffMax)
	var err error
	for attempt := 1; attempt <= dispatchAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		err = p.Publish(ctx, event)
		cancel()
		if err == nil {
			return
		}
		if attempt < dispatchAttempts {
			b.Sleep()
		}
	}
	logger.Get().Error("Dropping event after failed delivery attempts",
		zap.String("event_type", string(event.Type)),
		zap.String("shipment_id", event.ShipmentID),
		zap.Int("attempts", dispatchAttempts),
		zap.Error(err),
	)
}

type backoff struct {
	base time.Duration
	max  time.Duration
	cur  time.Duration
}

func newBackoff(base, max time.Duration) *backoff { return &backoff{base: base, max: max} }

func (b *backoff) Sleep() {
	if b.cur <= 0 {
		b.cur = b.base
	} else {
		b.cur *= 2
		if b.cur > b.max {
			b.cur = b.max
		}
	}
	// jitter ~ +/-20%
	j := 0.8 + 0.4*rand.Float64()
	time.Sleep(time.Duration(float64(b.cur) * j))
}
