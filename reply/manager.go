package reply

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmarback/interact"
)

// Manager manages the replies sent by an event handler.
//
// If a Spec leaves Private unset, the manager's default is used. On an
// interaction-backed manager that was never acknowledged, the very first
// reply ignores even an explicit Private value and uses the default: the
// interaction transport conflates the first acknowledgment with its
// visibility setting, so the manager-level default must win there. Further
// replies, and message-backed managers throughout, honor the Spec exactly.
//
// Managers are not valid forever; an interaction-based manager expires with
// the event's token. If handling takes long and needs further replies, use
// Detach to obtain an independent manager on a durable channel after sending
// the initial responses.
//
// Implementations are safe for concurrent use. Within one manager, sends
// execute strictly in call order: call N+1's send begins only after call N's
// has settled, regardless of which transport operation finishes first.
type Manager interface {
	// Defer signals receipt of the event before a substantive reply is
	// ready, using the manager's default visibility. If the event was
	// already acknowledged (by a prior Defer or reply), Defer is a no-op.
	Defer(ctx context.Context) error

	// Add sends a new reply at the next sequential index.
	Add(ctx context.Context, spec Spec) (*Reply, error)

	// Get retrieves a sent reply by index.
	Get(index int) (*Reply, error)

	// First retrieves the initial reply. It fails with ErrNoReplies if no
	// reply has been sent yet.
	First() (*Reply, error)

	// Detach returns an independent manager backed by a durable channel,
	// seeded with the existing reply chain. At least one reply must have
	// been sent; detaching earlier fails with ErrNoReplies, since some
	// events require a native response before anything else.
	Detach(ctx context.Context) (Manager, error)
}

// state holds the chain bookkeeping shared by all managers: the sent
// replies, the acknowledgment latch, and the serialization guard.
//
// The mutex is the guard. It is held across the transport call of every
// send, defer, and detach, which is what gives Manager its strict
// call-order execution.
type state struct {
	mu             sync.Mutex
	replies        []*Reply
	acked          bool
	defaultPrivate bool

	// ackBindsVisibility marks transports where the first send doubles as
	// the acknowledgment and fixes its visibility. Set only by interaction
	// managers; message channels carry visibility per send.
	ackBindsVisibility bool
}

// effectivePrivacy resolves the visibility of the next reply. Must be called
// with the guard held.
func (s *state) effectivePrivacy(spec Spec) bool {
	if s.ackBindsVisibility && len(s.replies) == 0 && !s.acked {
		// First send doubles as the acknowledgment, which fixes
		// visibility; the manager default overrides the Spec.
		return s.defaultPrivate
	}
	if spec.Private != nil {
		return *spec.Private
	}
	return s.defaultPrivate
}

func (s *state) deferWith(ctx context.Context, do func(ctx context.Context, private bool) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.acked {
		return nil
	}
	if err := do(ctx, s.defaultPrivate); err != nil {
		return err
	}
	s.acked = true
	return nil
}

func (s *state) addWith(ctx context.Context, spec Spec, send func(ctx context.Context, index int, spec Spec, private bool) (*Reply, error)) (*Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := send(ctx, len(s.replies), spec, s.effectivePrivacy(spec))
	if err != nil {
		return nil, err
	}
	s.replies = append(s.replies, r)
	s.acked = true
	return r, nil
}

func (s *state) detachWith(do func() (Manager, error)) (Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.replies) == 0 {
		return nil, interact.ErrNoReplies
	}
	return do()
}

// Get retrieves a sent reply by index.
func (s *state) Get(index int) (*Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.replies) {
		return nil, fmt.Errorf("%w: %d", interact.ErrNoSuchReply, index)
	}
	return s.replies[index], nil
}

// First retrieves the initial reply.
func (s *state) First() (*Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.replies) == 0 {
		return nil, interact.ErrNoReplies
	}
	return s.replies[0], nil
}
