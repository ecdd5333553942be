// Package gateway provides a WebSocket event source for interaction
// dispatchers. A Conn reads event frames from a provider gateway, decodes
// them, and exposes them on a channel shaped for [component.Manager.Run]:
//
//	conn, err := gateway.Dial(ctx, "wss://gateway.example.com/events")
//	if err != nil { ... }
//	defer conn.Close()
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(func() error { return conn.Run(ctx) })
//	g.Go(func() error { return buttons.Run(ctx, conn.Events()) })
//	err = g.Wait()
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/tmarback/interact"
)

// RawEvent is a decoded interaction event frame. It satisfies
// [interact.SurfaceEvent], so it can feed a component manager directly;
// applications with richer event types decode Payload themselves.
type RawEvent struct {
	// ID is the event's custom identifier, routed on by the dispatcher.
	ID string `json:"custom_id" msgpack:"custom_id"`

	// User identifies the user that triggered the event.
	User string `json:"user_id" msgpack:"user_id"`

	// Message identifies the message the event's component is attached
	// to, when there is one. Used as the mutual-exclusion surface.
	Message string `json:"message_id,omitempty" msgpack:"message_id,omitempty"`

	// Payload carries the rest of the provider frame, unparsed.
	Payload []byte `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

func (e RawEvent) CustomID() string   { return e.ID }
func (e RawEvent) UserID() string     { return e.User }
func (e RawEvent) SurfaceKey() string { return e.Message }

// Conn is a WebSocket connection to an event gateway.
type Conn struct {
	conn   net.Conn
	codec  Codec
	logger *slog.Logger
	buffer int

	events chan RawEvent
	closed atomic.Bool
}

// Option configures a Conn.
type Option func(*Conn)

// WithCodec sets the frame codec. Defaults to [JSONCodec].
func WithCodec(c Codec) Option {
	return func(conn *Conn) { conn.codec = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(conn *Conn) { conn.logger = l }
}

// WithBuffer sets the event channel's buffer size. Defaults to 64.
func WithBuffer(n int) Option {
	return func(conn *Conn) { conn.buffer = n }
}

// Dial connects to an event gateway.
func Dial(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	c := &Conn{
		codec:  JSONCodec{},
		logger: slog.Default(),
		buffer: 64,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.events = make(chan RawEvent, c.buffer)

	conn, _, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("gateway: dial %s: %w", url, err)
	}
	c.conn = conn

	c.logger.Info("gateway connected", slog.String("url", url))
	return c, nil
}

// Events returns the channel decoded events are delivered on. It is
// closed when Run returns.
func (c *Conn) Events() <-chan RawEvent {
	return c.events
}

// Run reads frames until the connection fails, Close is called, or ctx is
// cancelled, forwarding decoded events to the Events channel. Frames that
// fail to decode are logged and skipped; the stream survives them. Run
// returns [interact.ErrConnClosed] after Close, ctx.Err() on cancellation,
// and the read error otherwise.
func (c *Conn) Run(ctx context.Context) error {
	defer close(c.events)

	// Reads block without a deadline; closing the socket is the only way
	// to interrupt one when ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		// ReadServerData accepts both text and binary frames, so the
		// codec choice does not constrain the frame opcode.
		data, _, err := wsutil.ReadServerData(c.conn)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.closed.Load() {
				return interact.ErrConnClosed
			}
			return fmt.Errorf("gateway: read: %w", err)
		}

		var ev RawEvent
		if err := c.codec.Decode(data, &ev); err != nil {
			c.logger.Warn("dropping undecodable gateway frame",
				slog.String("error", err.Error()),
				slog.Int("size", len(data)),
			)
			continue
		}

		select {
		case c.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close tears down the connection. Safe to call more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.conn.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("gateway: close: %w", err)
	}
	return nil
}
