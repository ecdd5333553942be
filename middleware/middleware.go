// Package middleware provides composable middleware for handler execution.
// Middleware wraps handler calls synchronously and can modify execution
// (recover from panics, log, rate-limit, add tracing, etc.).
package middleware

import (
	"context"
)

// Call describes a single handler invocation flowing through the chain.
// It carries the routing metadata middleware need for logging, metrics,
// and admission decisions, without exposing the event payload itself.
type Call struct {
	// Surface names the component surface the call arrived on,
	// e.g. "button" or "modal".
	Surface string

	// HandlerID is the registered identifier the call was routed to.
	HandlerID string

	// UserID identifies the user that triggered the call.
	UserID string

	// Mutex reports whether the handler requested mutual exclusion
	// over its triggering message.
	Mutex bool
}

// Handler is the terminal function that executes handler logic.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the call being executed, and the
// next handler to call. Middleware MUST call next to continue the chain
// (unless short-circuiting on error).
type Middleware func(ctx context.Context, c *Call, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover) executes as:
//
//	logging → recover → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, c *Call, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, c, prev)
			}
		}
		return h(ctx)
	}
}
