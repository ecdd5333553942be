// Package reply manages the ordered chain of responses tied to one
// triggering interaction event.
//
// A Manager serializes sends so that replies land in call order, tracks
// whether the event has been acknowledged, and applies the visibility rules
// the underlying transport imposes on the first response. Two managers are
// provided: InteractionManager sends through the event's own token-scoped
// transport, and MessageManager sends plain messages through a durable
// Channel. Detaching an interaction manager migrates its chain to a message
// manager before the event's validity window expires.
package reply

import (
	"context"
	"sync"
)

// Reply is one sent reply in a chain. Its index and identity are fixed at
// send time; the underlying resource may still be mutated through Edit and
// Delete.
type Reply struct {
	index int
	ops   ops
}

// ops abstracts how a reply reaches its underlying resource. The three
// shapes are the initial interaction response (identity resolved lazily),
// an interaction followup, and a plain message.
type ops interface {
	identity(ctx context.Context) (Identity, error)
	edit(ctx context.Context, spec Spec) error
	remove(ctx context.Context) error
}

// Index returns the position of the reply in its chain.
func (r *Reply) Index() int { return r.index }

// Identity resolves the transport identity of the reply. For the initial
// response of an interaction manager this may require a transport call the
// first time; the result is cached.
func (r *Reply) Identity(ctx context.Context) (Identity, error) {
	return r.ops.identity(ctx)
}

// Edit replaces the content of the reply.
func (r *Reply) Edit(ctx context.Context, spec Spec) error {
	return r.ops.edit(ctx, spec)
}

// Delete removes the reply.
func (r *Reply) Delete(ctx context.Context) error {
	return r.ops.remove(ctx)
}

// initialReply is the first response of an interaction manager. The
// transport creates it implicitly on Reply, so its identity is only known
// after asking the transport; the answer is static and cached.
type initialReply struct {
	event Interaction

	once sync.Once
	id   Identity
	err  error
}

func (r *initialReply) identity(ctx context.Context) (Identity, error) {
	r.once.Do(func() {
		r.id, r.err = r.event.ReplyIdentity(ctx)
	})
	return r.id, r.err
}

func (r *initialReply) edit(ctx context.Context, spec Spec) error {
	return r.event.EditReply(ctx, spec)
}

func (r *initialReply) remove(ctx context.Context) error {
	return r.event.DeleteReply(ctx)
}

// followupReply is a response sent after acknowledgment through the
// interaction transport.
type followupReply struct {
	event Interaction
	id    Identity
}

func (r followupReply) identity(context.Context) (Identity, error) {
	return r.id, nil
}

func (r followupReply) edit(ctx context.Context, spec Spec) error {
	return r.event.EditFollowup(ctx, r.id, spec)
}

func (r followupReply) remove(ctx context.Context) error {
	return r.event.DeleteFollowup(ctx, r.id)
}

// messageReply is a plain message on a durable channel.
type messageReply struct {
	ch Channel
	id Identity
}

func (r messageReply) identity(context.Context) (Identity, error) {
	return r.id, nil
}

func (r messageReply) edit(ctx context.Context, spec Spec) error {
	return r.ch.Edit(ctx, r.id, spec)
}

func (r messageReply) remove(ctx context.Context) error {
	return r.ch.Delete(ctx, r.id)
}
