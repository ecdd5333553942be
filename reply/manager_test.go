package reply_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tmarback/interact"
	"github.com/tmarback/interact/reply"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type sentReply struct {
	content  string
	private  bool
	followup bool
}

// fakeInteraction records transport calls. If gate is non-nil, the initial
// Reply blocks until the gate closes, signalling entry on entered.
type fakeInteraction struct {
	mu        sync.Mutex
	deferrals []bool
	sent      []sentReply
	nextID    int

	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeInteraction) DeferReply(_ context.Context, private bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deferrals = append(f.deferrals, private)
	return nil
}

func (f *fakeInteraction) Reply(_ context.Context, spec reply.Spec, private bool) error {
	if f.entered != nil {
		close(f.entered)
		f.entered = nil
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentReply{content: spec.Content, private: private})
	return nil
}

func (f *fakeInteraction) ReplyIdentity(context.Context) (reply.Identity, error) {
	return reply.Identity{ChannelID: "chan", MessageID: "initial"}, nil
}

func (f *fakeInteraction) EditReply(context.Context, reply.Spec) error { return nil }
func (f *fakeInteraction) DeleteReply(context.Context) error           { return nil }

func (f *fakeInteraction) Followup(_ context.Context, spec reply.Spec, private bool) (reply.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentReply{content: spec.Content, private: private, followup: true})
	f.nextID++
	return reply.Identity{ChannelID: "chan", MessageID: fmt.Sprintf("followup-%d", f.nextID)}, nil
}

func (f *fakeInteraction) EditFollowup(context.Context, reply.Identity, reply.Spec) error {
	return nil
}
func (f *fakeInteraction) DeleteFollowup(context.Context, reply.Identity) error { return nil }

type sentMessage struct {
	content string
	replyTo string
}

type fakeChannel struct {
	mu      sync.Mutex
	name    string
	sent    []sentMessage
	markers int
	nextID  int
}

func (c *fakeChannel) Send(_ context.Context, spec reply.Spec, replyTo string) (reply.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{content: spec.Content, replyTo: replyTo})
	c.nextID++
	return reply.Identity{ChannelID: c.name, MessageID: fmt.Sprintf("%s-%d", c.name, c.nextID)}, nil
}

func (c *fakeChannel) Edit(context.Context, reply.Identity, reply.Spec) error { return nil }
func (c *fakeChannel) Delete(context.Context, reply.Identity) error           { return nil }

func (c *fakeChannel) SendReferenceMarker(context.Context) (reply.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markers++
	return reply.Identity{ChannelID: c.name, MessageID: fmt.Sprintf("%s-marker-%d", c.name, c.markers)}, nil
}

// ---------------------------------------------------------------------------
// Privacy rules
// ---------------------------------------------------------------------------

func TestInteractionManager_FirstReplyForcesDefault(t *testing.T) {
	f := &fakeInteraction{}
	m := reply.NewInteractionManager(f, &fakeChannel{name: "pub"}, reply.WithDefaultPrivate(true))

	// Explicit public on the first reply is overridden by the default.
	if _, err := m.Add(context.Background(), reply.Spec{Content: "a", Private: reply.Private(false)}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if !f.sent[0].private {
		t.Fatal("first reply should have been forced private")
	}

	// Second reply honors the explicit value exactly.
	if _, err := m.Add(context.Background(), reply.Spec{Content: "b", Private: reply.Private(false)}); err != nil {
		t.Fatalf("second add: %v", err)
	}
	if f.sent[1].private {
		t.Fatal("second reply should honor explicit public visibility")
	}
	if !f.sent[1].followup {
		t.Fatal("second reply should be a followup")
	}
}

func TestInteractionManager_ExplicitPrivacyAfterDefer(t *testing.T) {
	f := &fakeInteraction{}
	m := reply.NewInteractionManager(f, &fakeChannel{name: "pub"}, reply.WithDefaultPrivate(true))

	if err := m.Defer(context.Background()); err != nil {
		t.Fatalf("defer: %v", err)
	}
	if len(f.deferrals) != 1 || !f.deferrals[0] {
		t.Fatalf("deferrals = %v, want one private deferral", f.deferrals)
	}

	// Already acknowledged: the explicit value wins even on the first reply.
	if _, err := m.Add(context.Background(), reply.Spec{Content: "a", Private: reply.Private(false)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if f.sent[0].private {
		t.Fatal("post-defer reply should honor explicit public visibility")
	}
	if !f.sent[0].followup {
		t.Fatal("post-defer reply should be a followup")
	}
}

func TestInteractionManager_DeferIdempotent(t *testing.T) {
	f := &fakeInteraction{}
	m := reply.NewInteractionManager(f, &fakeChannel{name: "pub"})

	for range 3 {
		if err := m.Defer(context.Background()); err != nil {
			t.Fatalf("defer: %v", err)
		}
	}
	if len(f.deferrals) != 1 {
		t.Fatalf("expected exactly 1 deferral, got %d", len(f.deferrals))
	}
}

// ---------------------------------------------------------------------------
// Send ordering
// ---------------------------------------------------------------------------

func TestManager_SendsExecuteInCallOrder(t *testing.T) {
	f := &fakeInteraction{
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	m := reply.NewInteractionManager(f, &fakeChannel{name: "pub"})

	entered := f.entered
	gate := f.gate

	var wg sync.WaitGroup
	wg.Add(2)

	// Call A: its underlying send stalls on the gate.
	go func() {
		defer wg.Done()
		if _, err := m.Add(context.Background(), reply.Spec{Content: "A"}); err != nil {
			t.Errorf("add A: %v", err)
		}
	}()

	// Call B starts only after A's send began, so the call order is fixed.
	go func() {
		defer wg.Done()
		<-entered
		if _, err := m.Add(context.Background(), reply.Spec{Content: "B"}); err != nil {
			t.Errorf("add B: %v", err)
		}
	}()

	// Give B a chance to (incorrectly) jump ahead, then release A.
	<-entered
	time.Sleep(20 * time.Millisecond)
	f.mu.Lock()
	sent := len(f.sent)
	f.mu.Unlock()
	if sent != 0 {
		t.Fatal("B's send must not begin before A's completes")
	}
	close(gate)
	wg.Wait()

	if f.sent[0].content != "A" || f.sent[1].content != "B" {
		t.Fatalf("send order = [%s %s], want [A B]", f.sent[0].content, f.sent[1].content)
	}

	rb, err := m.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rb.Index() != 1 {
		t.Fatalf("index = %d, want 1", rb.Index())
	}
}

// ---------------------------------------------------------------------------
// Retrieval
// ---------------------------------------------------------------------------

func TestManager_GetAndFirst(t *testing.T) {
	f := &fakeInteraction{}
	m := reply.NewInteractionManager(f, &fakeChannel{name: "pub"})

	if _, err := m.First(); !errors.Is(err, interact.ErrNoReplies) {
		t.Fatalf("First on empty manager: err = %v, want ErrNoReplies", err)
	}
	if _, err := m.Get(0); !errors.Is(err, interact.ErrNoSuchReply) {
		t.Fatalf("Get(0) on empty manager: err = %v, want ErrNoSuchReply", err)
	}

	if _, err := m.Add(context.Background(), reply.Spec{Content: "a"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	first, err := m.First()
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	if first.Index() != 0 {
		t.Fatalf("index = %d, want 0", first.Index())
	}
	if _, err := m.Get(1); !errors.Is(err, interact.ErrNoSuchReply) {
		t.Fatalf("Get(1): err = %v, want ErrNoSuchReply", err)
	}
}

// ---------------------------------------------------------------------------
// Detach
// ---------------------------------------------------------------------------

func TestInteractionManager_DetachBeforeReplyFails(t *testing.T) {
	m := reply.NewInteractionManager(&fakeInteraction{}, &fakeChannel{name: "pub"})

	if _, err := m.Detach(context.Background()); !errors.Is(err, interact.ErrNoReplies) {
		t.Fatalf("err = %v, want ErrNoReplies", err)
	}
}

func TestInteractionManager_DetachContinuesChain(t *testing.T) {
	f := &fakeInteraction{}
	pub := &fakeChannel{name: "pub"}
	m := reply.NewInteractionManager(f, pub)

	if _, err := m.Add(context.Background(), reply.Spec{Content: "a"}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	r1, err := m.Add(context.Background(), reply.Spec{Content: "b"})
	if err != nil {
		t.Fatalf("add b: %v", err)
	}
	lastID, err := r1.Identity(context.Background())
	if err != nil {
		t.Fatalf("identity: %v", err)
	}

	detached, err := m.Detach(context.Background())
	if err != nil {
		t.Fatalf("detach: %v", err)
	}

	// The existing chain carries over with indices and identities intact.
	first, err := detached.Get(0)
	if err != nil {
		t.Fatalf("get 0: %v", err)
	}
	if first.Index() != 0 {
		t.Fatalf("index = %d, want 0", first.Index())
	}
	id, err := first.Identity(context.Background())
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if id.MessageID != "initial" {
		t.Fatalf("identity = %q, want initial reply's", id.MessageID)
	}

	// New replies are plain messages linked below the last existing one.
	r2, err := detached.Add(context.Background(), reply.Spec{Content: "c"})
	if err != nil {
		t.Fatalf("add after detach: %v", err)
	}
	if r2.Index() != 2 {
		t.Fatalf("index = %d, want 2", r2.Index())
	}
	if len(pub.sent) != 1 || pub.sent[0].replyTo != lastID.MessageID {
		t.Fatalf("detached send = %+v, want one send linked to %q", pub.sent, lastID.MessageID)
	}
}

// ---------------------------------------------------------------------------
// Message manager chains
// ---------------------------------------------------------------------------

func TestMessageManager_PublicChainLinksBelowOrigin(t *testing.T) {
	pub := &fakeChannel{name: "pub"}
	m := reply.NewMessageManager(pub, "origin")

	if _, err := m.Add(context.Background(), reply.Spec{Content: "a"}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := m.Add(context.Background(), reply.Spec{Content: "b"}); err != nil {
		t.Fatalf("add b: %v", err)
	}

	if pub.markers != 0 {
		t.Fatal("public chain with an origin message needs no reference marker")
	}
	if pub.sent[0].replyTo != "origin" {
		t.Fatalf("first reply linked to %q, want origin", pub.sent[0].replyTo)
	}
	if pub.sent[1].replyTo != "pub-1" {
		t.Fatalf("second reply linked to %q, want pub-1", pub.sent[1].replyTo)
	}
}

func TestMessageManager_PrivateChainAnchorsOnce(t *testing.T) {
	pub := &fakeChannel{name: "pub"}
	priv := &fakeChannel{name: "priv"}
	m := reply.NewMessageManager(pub, "origin", reply.WithPrivateChannel(priv))

	for i := range 2 {
		if _, err := m.Add(context.Background(), reply.Spec{Content: "p", Private: reply.Private(true)}); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	if priv.markers != 1 {
		t.Fatalf("markers = %d, want exactly 1", priv.markers)
	}
	if priv.sent[0].replyTo != "priv-marker-1" {
		t.Fatalf("first private reply linked to %q, want the marker", priv.sent[0].replyTo)
	}
	if len(pub.sent) != 0 {
		t.Fatal("private replies must not reach the public channel")
	}
}

func TestMessageManager_FirstReplyHonorsExplicitPrivacy(t *testing.T) {
	pub := &fakeChannel{name: "pub"}
	priv := &fakeChannel{name: "priv"}
	m := reply.NewMessageManager(pub, "origin",
		reply.WithPrivateChannel(priv),
		reply.WithDefaultPrivate(true),
	)

	// Message channels carry visibility per send, so an explicit Private
	// wins even on the very first reply.
	if _, err := m.Add(context.Background(), reply.Spec{Content: "a", Private: reply.Private(false)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(pub.sent) != 1 || len(priv.sent) != 0 {
		t.Fatalf("first reply went to pub=%d priv=%d, want the public chain", len(pub.sent), len(priv.sent))
	}

	// Leaving Private unset still falls back to the manager default.
	if _, err := m.Add(context.Background(), reply.Spec{Content: "b"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(priv.sent) != 1 {
		t.Fatalf("unset privacy went to priv=%d, want the default private chain", len(priv.sent))
	}
}

func TestMessageManager_DetachIsIndependent(t *testing.T) {
	pub := &fakeChannel{name: "pub"}
	m := reply.NewMessageManager(pub, "origin")

	if _, err := m.Add(context.Background(), reply.Spec{Content: "a"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	detached, err := m.Detach(context.Background())
	if err != nil {
		t.Fatalf("detach: %v", err)
	}

	// Both managers continue from the same point, independently.
	if _, err := m.Add(context.Background(), reply.Spec{Content: "b"}); err != nil {
		t.Fatalf("add on original: %v", err)
	}
	r, err := detached.Add(context.Background(), reply.Spec{Content: "c"})
	if err != nil {
		t.Fatalf("add on detached: %v", err)
	}
	if r.Index() != 1 {
		t.Fatalf("detached add index = %d, want 1", r.Index())
	}
	if pub.sent[1].replyTo != "pub-1" || pub.sent[2].replyTo != "pub-1" {
		t.Fatalf("both continuations should link below pub-1, got %q and %q",
			pub.sent[1].replyTo, pub.sent[2].replyTo)
	}
}
