// Package notifier broadcasts staleness events to in-process
// subscribers and adapts the broadcast as a staleness.Emitter.
package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline-labs/fieldline/pkg/staleness"
)

// Envelope wraps one staleness event with delivery metadata.
type Envelope struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	Timestamp time.Time       `json:"timestamp"`
	Event     staleness.Event `json:"event"`
}

// Notifier fans staleness envelopes out to all subscribed listeners.
// Delivery is best-effort: a listener that is not keeping up misses
// envelopes rather than blocking propagation.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Envelope]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Envelope]struct{}),
	}
}

// Subscribe returns a buffered channel receiving staleness envelopes.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe() chan Envelope {
	ch := make(chan Envelope, 64)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Envelope) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Emit implements staleness.Emitter by stamping the event and
// broadcasting it. It never fails: delivery to slow listeners is
// dropped, not retried.
func (n *Notifier) Emit(_ context.Context, tenantID string, event staleness.Event) error {
	env := Envelope{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Timestamp: time.Now().UTC(),
		Event:     event,
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- env:
		default:
			// Channel full, skip (listener will catch up on the next event)
		}
	}
	return nil
}
