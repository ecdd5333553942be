package reply

import "context"

// Identity addresses a sent reply on the transport.
type Identity struct {
	ChannelID string
	MessageID string
}

// Spec describes a reply to send.
type Spec struct {
	// Content is the reply text.
	Content string

	// Private requests the visibility of this reply. nil means "use the
	// manager's default". The very first reply on a never-acknowledged
	// manager ignores an explicit value; see Manager.
	Private *bool
}

// Private returns a pointer to v, for building Specs with an explicit
// visibility.
func Private(v bool) *bool { return &v }

// Channel is a durable message channel: replies sent through it do not
// expire with the triggering event. It backs message-based managers and the
// detach path of interaction-based ones.
type Channel interface {
	// Send posts a reply. replyTo, when non-empty, is the message the reply
	// should be linked below, keeping the chain visually attached.
	Send(ctx context.Context, spec Spec, replyTo string) (Identity, error)

	// Edit replaces the content of a previously sent reply.
	Edit(ctx context.Context, id Identity, spec Spec) error

	// Delete removes a previously sent reply.
	Delete(ctx context.Context, id Identity) error

	// SendReferenceMarker posts the marker message that anchors a reply
	// chain in a channel with no prior message to link below (the first
	// private reply, or a chain migrated from an expiring event).
	SendReferenceMarker(ctx context.Context) (Identity, error)
}

// Typer is an optional Channel capability: signaling activity in the channel.
// Message-backed managers use it as their deferral action when available.
type Typer interface {
	Typing(ctx context.Context) error
}

// Interaction is the token-scoped transport bound to one triggering event.
// It expires with the event's validity window; managers built on it support
// Detach to escape to a Channel before that happens.
type Interaction interface {
	// DeferReply acknowledges the event before a substantive reply is
	// ready. The privacy of the eventual initial reply is fixed here.
	DeferReply(ctx context.Context, private bool) error

	// Reply sends the initial response, acknowledging the event.
	Reply(ctx context.Context, spec Spec, private bool) error

	// ReplyIdentity resolves the identity of the initial response.
	ReplyIdentity(ctx context.Context) (Identity, error)

	// EditReply replaces the content of the initial response.
	EditReply(ctx context.Context, spec Spec) error

	// DeleteReply removes the initial response.
	DeleteReply(ctx context.Context) error

	// Followup sends a response after the event has been acknowledged.
	Followup(ctx context.Context, spec Spec, private bool) (Identity, error)

	// EditFollowup replaces the content of a followup.
	EditFollowup(ctx context.Context, id Identity, spec Spec) error

	// DeleteFollowup removes a followup.
	DeleteFollowup(ctx context.Context, id Identity) error
}
