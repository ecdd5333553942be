package reply

import (
	"context"
	"fmt"

	"github.com/tmarback/interact"
)

// Compile-time interface checks.
var (
	_ Manager = (*InteractionManager)(nil)
	_ Manager = (*MessageManager)(nil)
)

// Option configures a manager.
type Option func(*config)

type config struct {
	defaultPrivate bool
	private        Channel
}

// WithDefaultPrivate sets whether replies are private by default.
func WithDefaultPrivate(v bool) Option {
	return func(c *config) { c.defaultPrivate = v }
}

// WithPrivateChannel sets a separate channel for private replies. Without
// one, private replies share the public channel (which is what a chain
// triggered from a private channel wants).
func WithPrivateChannel(ch Channel) Option {
	return func(c *config) { c.private = ch }
}

// InteractionManager sends replies through the token-scoped transport of the
// triggering event: the initial response acknowledges the event, later
// replies are followups. Detach migrates the chain to plain messages on the
// given durable channel before the token expires.
type InteractionManager struct {
	state

	event  Interaction
	public Channel
	priv   Channel // nil: public serves private replies after detach
}

// NewInteractionManager creates a manager for one triggering event. public
// is the durable channel a detached chain continues on, normally the channel
// the event came from.
func NewInteractionManager(event Interaction, public Channel, opts ...Option) *InteractionManager {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return &InteractionManager{
		state:  state{defaultPrivate: cfg.defaultPrivate, ackBindsVisibility: true},
		event:  event,
		public: public,
		priv:   cfg.private,
	}
}

// Defer acknowledges the event with the manager's default visibility.
func (m *InteractionManager) Defer(ctx context.Context) error {
	return m.deferWith(ctx, m.event.DeferReply)
}

// Add sends a new reply at the next sequential index.
func (m *InteractionManager) Add(ctx context.Context, spec Spec) (*Reply, error) {
	return m.addWith(ctx, spec, m.send)
}

// send runs with the serialization guard held, so it may read the
// acknowledgment latch directly.
func (m *InteractionManager) send(ctx context.Context, index int, spec Spec, private bool) (*Reply, error) {
	if !m.acked {
		if index > 0 {
			return nil, fmt.Errorf("%w: non-initial reply while never acknowledged", interact.ErrInvalidState)
		}
		if err := m.event.Reply(ctx, spec, private); err != nil {
			return nil, err
		}
		return &Reply{index: 0, ops: &initialReply{event: m.event}}, nil
	}

	id, err := m.event.Followup(ctx, spec, private)
	if err != nil {
		return nil, err
	}
	return &Reply{index: index, ops: followupReply{event: m.event, id: id}}, nil
}

// Detach converts the chain to message-addressed form and returns a
// MessageManager continuing below its last message. Reply identities are
// resolved eagerly here, while the interaction token is still valid.
func (m *InteractionManager) Detach(ctx context.Context) (Manager, error) {
	return m.detachWith(func() (Manager, error) {
		converted := make([]*Reply, len(m.replies))
		var last Identity
		for i, r := range m.replies {
			id, err := r.Identity(ctx)
			if err != nil {
				return nil, fmt.Errorf("resolve reply %d: %w", i, err)
			}
			converted[i] = &Reply{index: r.index, ops: messageReply{ch: m.public, id: id}}
			last = id
		}

		return newMessageManager(converted, m.public, m.priv, last.MessageID, m.defaultPrivate), nil
	})
}
