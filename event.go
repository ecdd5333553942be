package interact

import "context"

// Event is an inbound interaction event: a discrete notification that a user
// invoked some registered control. This is the minimal capability set the
// dispatch machinery needs; concrete event types come from the application
// or from the gateway package.
type Event interface {
	// CustomID returns the raw identifier carried by the event. It routes
	// the event to a handler; see SplitID for the wire format.
	CustomID() string

	// UserID identifies the invoking user.
	UserID() string
}

// SurfaceEvent is an Event attached to a shared UI surface. Handlers flagged
// for mutually-exclusive execution serialize on the surface key, so that at
// most one such handler runs per surface at any time.
type SurfaceEvent interface {
	Event

	// SurfaceKey identifies the shared surface the event is attached to.
	// For button presses this is the message carrying the component row.
	SurfaceKey() string
}

// Updatable is implemented by events whose source surface can be updated in
// place (component interactions support responding by editing the message
// the component is attached to). Page controls use this to swap page content
// without growing the reply chain.
type Updatable interface {
	// Update replaces the content of the source surface.
	Update(ctx context.Context, content string) error
}
