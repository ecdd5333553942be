// Package component wires the interaction subsystems together. It routes
// incoming component events to registered handlers through a middleware
// chain, enforcing access control and per-message mutual exclusion along
// the way.
//
// This package sits above the access, lockmap, middleware, and reply
// packages and below the application layer: the root interact package
// defines the leaf event types those subsystems share, so the dispatch
// logic that needs all of them lives here.
//
// A [Manager] is created per component surface (buttons, modals) and fed
// events either one at a time through [Manager.Dispatch] or from a channel
// through [Manager.Run]:
//
//	buttons := component.NewButtonManager(replySource,
//	    component.WithLocker(component.NewMapLocker()),
//	)
//	buttons.Register(component.Handler[MyEvent]{
//	    ID:    "open-ticket",
//	    Func:  openTicket,
//	    Mutex: true,
//	})
//	err := buttons.Run(ctx, events)
package component
