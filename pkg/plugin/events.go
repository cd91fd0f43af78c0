package plugin

import (
	"sync"

	"github.com/interledger-go/plugin-bells/internal/metrics"
	"github.com/interledger-go/plugin-bells/pkg/bells"
)

// EventKind enumerates the ten transfer lifecycle events.
type EventKind int

const (
	IncomingPrepare EventKind = iota
	OutgoingPrepare
	IncomingTransfer
	OutgoingTransfer
	IncomingFulfill
	OutgoingFulfill
	IncomingCancel
	OutgoingCancel
	IncomingReject
	OutgoingReject
)

func (k EventKind) String() string {
	switch k {
	case IncomingPrepare:
		return "incoming_prepare"
	case OutgoingPrepare:
		return "outgoing_prepare"
	case IncomingTransfer:
		return "incoming_transfer"
	case OutgoingTransfer:
		return "outgoing_transfer"
	case IncomingFulfill:
		return "incoming_fulfill"
	case OutgoingFulfill:
		return "outgoing_fulfill"
	case IncomingCancel:
		return "incoming_cancel"
	case OutgoingCancel:
		return "outgoing_cancel"
	case IncomingReject:
		return "incoming_reject"
	case OutgoingReject:
		return "outgoing_reject"
	default:
		return "unknown"
	}
}

// Handler receives a lifecycle event. detail carries the fulfillment for
// *_fulfill and *_cancel events and the decoded rejection message for
// *_reject events; it is empty otherwise.
type Handler func(transfer *bells.PluginTransfer, detail string)

type subscription struct {
	id int
	fn Handler
}

// emitter is the typed event registry. Handlers run synchronously in
// registration order; unsubscribing is the only cancellation.
type emitter struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[EventKind][]subscription
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[EventKind][]subscription)}
}

func (e *emitter) subscribe(kind EventKind, fn Handler) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.handlers[kind] = append(e.handlers[kind], subscription{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		subs := e.handlers[kind]
		for i := range subs {
			if subs[i].id == id {
				e.handlers[kind] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

func (e *emitter) emit(kind EventKind, transfer *bells.PluginTransfer, detail string) {
	e.mu.RLock()
	subs := e.handlers[kind]
	e.mu.RUnlock()

	metrics.EventsEmitted.WithLabelValues(kind.String()).Inc()
	for _, sub := range subs {
		sub.fn(transfer, detail)
	}
}
