// Package eventbus carries message-change notifications from the write paths
// (webhook dispatch, manual sends) to the prospect aggregator. A single
// explicit feed replaces scattered ad-hoc listeners on the message table.
package eventbus

import "sync"

// MessageChange notifies that the conversation with one counterparty gained
// a message and its prospect view must be recomputed.
type MessageChange struct {
	AccountID      string
	CounterpartyID string
	MessageID      string
}

// Bus is an in-process publish/subscribe feed for message changes
type Bus struct {
	mu     sync.RWMutex
	subs   []chan MessageChange
	closed bool
}

// New creates a new bus
func New() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber. The returned channel is closed when
// the bus shuts down.
func (b *Bus) Subscribe(buffer int) <-chan MessageChange {
	if buffer <= 0 {
		buffer = 64
	}

	ch := make(chan MessageChange, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers a change to all subscribers without blocking. A subscriber
// that cannot keep up loses the event; the periodic rebuild covers the gap.
// The webhook path must never stall on a slow reader.
func (b *Bus) Publish(ev MessageChange) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close shuts down the bus and closes all subscriber channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
