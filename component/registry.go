package component

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tmarback/interact"
	"github.com/tmarback/interact/access"
	"github.com/tmarback/interact/reply"
)

// HandlerFunc executes a routed interaction. args carries everything after
// the first separator in the event's custom ID (empty when there was none).
type HandlerFunc[E interact.Event] func(ctx context.Context, c *Context[E], args string) error

// Context carries the per-event state a handler works with.
type Context[E interact.Event] struct {
	// Event is the interaction event being handled.
	Event E

	// Access is the validator bound to this event, for handlers that
	// apply finer-grained checks than their registered Group.
	Access access.Validator

	// Replies manages the reply chain for this event.
	Replies reply.Manager
}

// Handler declares a routed interaction handler.
type Handler[E interact.Event] struct {
	// ID is the routing identifier matched against the prefix of incoming
	// custom IDs. It must not contain the custom ID separator.
	ID string

	// Func is invoked for each event routed to this handler.
	Func HandlerFunc[E]

	// Group restricts execution to its members. Nil or [access.Anyone]
	// means unrestricted.
	Group access.Group

	// Mutex requests mutually exclusive execution over the handler's
	// surface: while one invocation runs, concurrent events for the same
	// surface are turned away instead of queued.
	Mutex bool
}

// registry maps handler IDs to handlers. It is safe for concurrent use.
type registry[E interact.Event] struct {
	mu       sync.RWMutex
	handlers map[string]Handler[E]
	logger   *slog.Logger
}

func newRegistry[E interact.Event](logger *slog.Logger) *registry[E] {
	return &registry[E]{
		handlers: make(map[string]Handler[E]),
		logger:   logger,
	}
}

// register stores h, replacing any handler already stored under the same ID.
// Replacement is legal but usually a wiring mistake, so it is logged.
func (r *registry[E]) register(h Handler[E]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[h.ID]; ok {
		r.logger.Warn("replacing existing handler", slog.String("handler_id", h.ID))
	}
	r.handlers[h.ID] = h
}

// unregister removes the handler stored under id. Removing an ID that was
// never registered is a no-op, logged as an error since it indicates the
// caller's bookkeeping has drifted.
func (r *registry[E]) unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[id]; !ok {
		r.logger.Error("no such handler to unregister", slog.String("handler_id", id))
		return
	}
	delete(r.handlers, id)
}

func (r *registry[E]) get(id string) (Handler[E], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[id]
	return h, ok
}

func (r *registry[E]) ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	return ids
}
