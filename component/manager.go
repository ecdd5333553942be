package component

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tmarback/interact"
	"github.com/tmarback/interact/access"
	mw "github.com/tmarback/interact/middleware"
	"github.com/tmarback/interact/reply"
)

// User-facing messages sent when a dispatch is turned away before the
// handler runs. They are always sent privately.
const (
	msgDeniedNamed   = "Only users in the %s group can do this."
	msgDeniedGeneric = "You are not allowed to do this."
	msgContended     = "Sorry, please try again."
	msgRateLimited   = "You're doing that too fast. Try again in a moment."
)

// ReplySource builds the reply manager for one event. It is called once
// per dispatched event, before the handler runs.
type ReplySource[E interact.Event] func(E) reply.Manager

// ValidatorSource builds the access validator for one event. Validators
// are bound to the event's invoking user, so they cannot be shared.
type ValidatorSource[E interact.Event] func(E) access.Validator

// Manager routes events for one component surface to registered handlers.
// Dispatch is containing: handler errors, denials, and contention are
// resolved here (logged, or answered with a private reply) and never
// propagate to the event loop.
type Manager[E interact.Event] struct {
	surface   string
	reg       *registry[E]
	replies   ReplySource[E]
	validator ValidatorSource[E]
	locker    Locker
	lockKey   func(E) string
	chain     mw.Middleware
	logger    *slog.Logger

	concurrency int

	// set before NewManager assembles the chain
	extraMws       []mw.Middleware
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures a Manager.
type Option[E interact.Event] func(*Manager[E])

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger[E interact.Event](l *slog.Logger) Option[E] {
	return func(m *Manager[E]) { m.logger = l }
}

// WithValidatorSource sets the factory for per-event access validators.
// Without one, every handler that declares a Group denies all users:
// access is fail-closed, not fail-open.
func WithValidatorSource[E interact.Event](v ValidatorSource[E]) Option[E] {
	return func(m *Manager[E]) { m.validator = v }
}

// WithLocker sets the lock store backing mutually-exclusive handlers.
// Without one, Mutex handlers run unguarded.
func WithLocker[E interact.Event](l Locker) Option[E] {
	return func(m *Manager[E]) { m.locker = l }
}

// WithLockKey overrides how the mutual-exclusion key is derived from an
// event. The default uses the event's SurfaceKey when it implements
// [interact.SurfaceEvent], and falls back to the raw custom ID otherwise.
func WithLockKey[E interact.Event](f func(E) string) Option[E] {
	return func(m *Manager[E]) { m.lockKey = f }
}

// WithMiddleware appends middleware to the manager's chain, inside the
// default stack.
func WithMiddleware[E interact.Event](mws ...mw.Middleware) Option[E] {
	return func(m *Manager[E]) { m.extraMws = append(m.extraMws, mws...) }
}

// WithConcurrency caps how many events Run processes at once.
// Defaults to 16.
func WithConcurrency[E interact.Event](n int) Option[E] {
	return func(m *Manager[E]) { m.concurrency = n }
}

// WithTracerProvider sets a custom OTel TracerProvider for the tracing
// middleware. If not set, the global provider is used.
func WithTracerProvider[E interact.Event](tp trace.TracerProvider) Option[E] {
	return func(m *Manager[E]) { m.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the metrics
// middleware. If not set, the global provider is used.
func WithMeterProvider[E interact.Event](mp metric.MeterProvider) Option[E] {
	return func(m *Manager[E]) { m.meterProvider = mp }
}

// NewManager creates a dispatch manager for one component surface.
// surface is a short label used in logs, metrics, and traces, e.g.
// "button". replies builds the reply manager for each dispatched event.
func NewManager[E interact.Event](surface string, replies ReplySource[E], opts ...Option[E]) *Manager[E] {
	m := &Manager[E]{
		surface:     surface,
		replies:     replies,
		concurrency: 16,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.validator == nil {
		m.validator = func(E) access.Validator { return access.Fixed(false) }
	}
	if m.lockKey == nil {
		m.lockKey = func(ev E) string {
			if se, ok := any(ev).(interact.SurfaceEvent); ok {
				return se.SurfaceKey()
			}
			return ev.CustomID()
		}
	}
	m.reg = newRegistry[E](m.logger)

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if m.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(m.tracerProvider.Tracer("github.com/tmarback/interact"))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if m.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(m.meterProvider.Meter("github.com/tmarback/interact"))
	} else {
		metricsMw = mw.Metrics()
	}

	// Default middleware stack: recover → tracing → metrics → logging.
	all := []mw.Middleware{
		mw.Recover(m.logger),
		tracingMw,
		metricsMw,
		mw.Logging(m.logger),
	}
	all = append(all, m.extraMws...)
	m.chain = mw.Chain(all...)

	return m
}

// NewButtonManager creates a Manager for the "button" surface. Buttons are
// the surface users can double-press, so the manager carries an in-process
// locker out of the box; WithLocker overrides it for distributed setups.
func NewButtonManager[E interact.Event](replies ReplySource[E], opts ...Option[E]) *Manager[E] {
	return NewManager("button", replies, append([]Option[E]{WithLocker[E](NewMapLocker())}, opts...)...)
}

// NewModalManager creates a Manager for the "modal" surface.
func NewModalManager[E interact.Event](replies ReplySource[E], opts ...Option[E]) *Manager[E] {
	return NewManager("modal", replies, opts...)
}

// Register adds h to the routing table, replacing (with a warning) any
// handler already registered under the same ID.
func (m *Manager[E]) Register(h Handler[E]) {
	m.reg.register(h)
}

// RegisterAll registers each handler in order.
func (m *Manager[E]) RegisterAll(hs ...Handler[E]) {
	for _, h := range hs {
		m.reg.register(h)
	}
}

// Unregister removes the handler registered under id. Unknown IDs are
// logged and ignored.
func (m *Manager[E]) Unregister(id string) {
	m.reg.unregister(id)
}

// Handlers returns the IDs of all registered handlers.
func (m *Manager[E]) Handlers() []string {
	return m.reg.ids()
}

// Dispatch routes one event to its handler and contains the outcome:
// unknown routes are dropped with an error log, access denials and
// admission rejections are answered with a private reply, and handler
// failures are logged. It never panics and never propagates errors.
func (m *Manager[E]) Dispatch(ctx context.Context, ev E) {
	id, args := interact.SplitID(ev.CustomID())

	h, ok := m.reg.get(id)
	if !ok {
		m.logger.Error("no handler registered for interaction",
			slog.String("surface", m.surface),
			slog.String("custom_id", ev.CustomID()),
		)
		return
	}

	replies := m.replies(ev)
	call := &mw.Call{
		Surface:   m.surface,
		HandlerID: h.ID,
		UserID:    ev.UserID(),
		Mutex:     h.Mutex,
	}

	err := m.chain(ctx, call, func(ctx context.Context) error {
		return m.invoke(ctx, h, ev, args, replies)
	})
	if err != nil {
		m.contain(ctx, call, replies, err)
	}
}

// invoke is the terminal of the middleware chain: access check, lock
// admission, then the handler itself.
func (m *Manager[E]) invoke(ctx context.Context, h Handler[E], ev E, args string, replies reply.Manager) error {
	v := m.validator(ev)
	if err := access.Check(ctx, v, h.Group); err != nil {
		return err
	}

	cctx := &Context[E]{Event: ev, Access: v, Replies: replies}

	if !h.Mutex || m.locker == nil {
		return h.Func(ctx, cctx, args)
	}

	key := m.lockKey(ev)
	guard, err := m.locker.TryAcquire(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire lock %q: %w", key, err)
	}
	if guard == nil {
		// Another invocation holds the surface. Turn the user away
		// rather than queueing behind it.
		m.logger.Debug("interaction lock contended",
			slog.String("surface", m.surface),
			slog.String("handler_id", h.ID),
			slog.String("lock_key", key),
		)
		m.sendNotice(ctx, replies, msgContended)
		return nil
	}

	return guard.ReleaseAfter(func() error {
		return h.Func(ctx, cctx, args)
	})
}

// contain resolves a dispatch error at the boundary. Expected, user-facing
// conditions get a private reply; everything else is logged and suppressed.
func (m *Manager[E]) contain(ctx context.Context, call *mw.Call, replies reply.Manager, err error) {
	var denied *access.Error
	switch {
	case errors.As(err, &denied):
		m.logger.Info("interaction denied",
			slog.String("surface", m.surface),
			slog.String("handler_id", call.HandlerID),
			slog.String("user_id", call.UserID),
			slog.String("group", denied.Group.GroupID()),
		)
		msg := msgDeniedGeneric
		if named, ok := denied.Group.(access.NamedGroup); ok {
			msg = fmt.Sprintf(msgDeniedNamed, named.Name())
		}
		m.sendNotice(ctx, replies, msg)

	case errors.Is(err, interact.ErrRateLimited):
		m.sendNotice(ctx, replies, msgRateLimited)

	default:
		// Already logged with full detail by the logging middleware;
		// nothing more to do than keep it away from the event loop.
	}
}

// sendNotice sends a single private reply, logging (not propagating) any
// transport failure.
func (m *Manager[E]) sendNotice(ctx context.Context, replies reply.Manager, msg string) {
	_, err := replies.Add(ctx, reply.Spec{Content: msg, Private: reply.Private(true)})
	if err != nil {
		m.logger.Warn("failed to send dispatch notice",
			slog.String("surface", m.surface),
			slog.String("error", err.Error()),
		)
	}
}

// Run dispatches events from the channel until ctx is cancelled or the
// channel closes, processing at most the configured concurrency at once.
// It returns ctx.Err() on cancellation and nil on channel close.
func (m *Manager[E]) Run(ctx context.Context, events <-chan E) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				m.Dispatch(gctx, ev)
				return nil
			})
		}
	}
}
