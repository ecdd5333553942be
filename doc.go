// Package interact provides the dispatch and reply-coordination core for
// handling discrete interaction events (a user pressing a UI control or
// submitting a form) against a registry of handlers, with authorization
// gating and safe concurrent execution.
//
// Interact is designed as a library, not a service. Wire a component manager
// to an event source, register handlers as ordinary Go functions, and the
// manager takes care of routing, access checks, per-surface mutual exclusion,
// and reply-chain ordering.
//
// # Quick Start
//
//	m := component.NewButtonManager(replySource)
//	m.Register(component.Handler[Event]{
//	    ID:   "confirm",
//	    Func: confirm,
//	})
//	err := m.Run(ctx, events)
//
// # Architecture
//
// This root package holds the shared leaf types: the event capability
// interfaces, the custom-identifier codec, and the sentinel errors. Each
// subsystem (access, lockmap, reply, middleware, paginate, gateway) lives in
// its own package; the component package sits above all of them and wires a
// manager together, so no import cycles form.
//
// A handler either produces its intended effect, a permission-denial reply,
// a busy reply, or silence (unknown route). It never takes the shared event
// stream down with it: every handler failure is contained at the dispatch
// boundary.
package interact
