package reply

import (
	"context"
	"fmt"
	"slices"
)

// chain is one sequence of linked messages in a single channel. A manager
// has a public chain and possibly a separate private one; each tracks the
// message its next reply links below.
type chain struct {
	ch Channel

	// last is the message ID to link the next reply below, or empty when
	// the chain has no anchor yet and must send its reference marker first.
	last string
}

func (c *chain) copy() *chain {
	return &chain{ch: c.ch, last: c.last}
}

func (c *chain) send(ctx context.Context, index int, spec Spec) (*Reply, error) {
	if c.last == "" {
		marker, err := c.ch.SendReferenceMarker(ctx)
		if err != nil {
			return nil, fmt.Errorf("anchor reply chain: %w", err)
		}
		c.last = marker.MessageID
	}

	id, err := c.ch.Send(ctx, spec, c.last)
	if err != nil {
		return nil, err
	}
	c.last = id.MessageID
	return &Reply{index: index, ops: messageReply{ch: c.ch, id: id}}, nil
}

// MessageManager sends replies as plain messages on durable channels, each
// linked below the previous one in its chain. It never expires, which makes
// it the backing for detached chains and for message-triggered events.
type MessageManager struct {
	state

	public  *chain
	private *chain // == public when no separate private channel was given
}

// NewMessageManager creates a manager whose public chain starts below the
// origin message (the message that triggered the event).
func NewMessageManager(public Channel, origin string, opts ...Option) *MessageManager {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return newMessageManager(nil, public, cfg.private, origin, cfg.defaultPrivate)
}

// newMessageManager seeds a manager with an existing chain, for Detach.
func newMessageManager(replies []*Reply, public, private Channel, last string, defaultPrivate bool) *MessageManager {
	pub := &chain{ch: public, last: last}
	priv := pub
	if private != nil {
		priv = &chain{ch: private}
	}
	return &MessageManager{
		state:   state{replies: replies, defaultPrivate: defaultPrivate},
		public:  pub,
		private: priv,
	}
}

// Defer signals activity on the default channel when it supports that;
// otherwise it only latches the acknowledgment.
func (m *MessageManager) Defer(ctx context.Context) error {
	return m.deferWith(ctx, func(ctx context.Context, private bool) error {
		c := m.public
		if private {
			c = m.private
		}
		if t, ok := c.ch.(Typer); ok {
			return t.Typing(ctx)
		}
		return nil
	})
}

// Add sends a new reply at the next sequential index, on the chain selected
// by the reply's effective visibility.
func (m *MessageManager) Add(ctx context.Context, spec Spec) (*Reply, error) {
	return m.addWith(ctx, spec, func(ctx context.Context, index int, spec Spec, private bool) (*Reply, error) {
		c := m.public
		if private {
			c = m.private
		}
		return c.send(ctx, index, spec)
	})
}

// Detach returns an independent copy: same chain so far, further replies
// sent separately from this manager's.
func (m *MessageManager) Detach(context.Context) (Manager, error) {
	return m.detachWith(func() (Manager, error) {
		pub := m.public.copy()
		priv := pub
		if m.private != m.public {
			priv = m.private.copy()
		}
		return &MessageManager{
			state:   state{replies: slices.Clone(m.replies), defaultPrivate: m.defaultPrivate},
			public:  pub,
			private: priv,
		}, nil
	})
}
