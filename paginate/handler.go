package paginate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmarback/interact"
	"github.com/tmarback/interact/access"
	"github.com/tmarback/interact/component"
	"github.com/tmarback/interact/reply"
)

const msgUnknownPage = "That page list is no longer available."

// Control describes one pagination button to be attached to a message.
type Control struct {
	// CustomID routes the button press back to the pagination handler.
	// Empty for the display-only counter.
	CustomID string

	// Label is the button text, set only for the counter.
	Label string

	// Disabled marks controls that would navigate out of range, and the
	// counter, which is display-only.
	Disabled bool
}

// ControlSet holds the controls for one page of a paged message, in
// display order.
type ControlSet struct {
	Prev    Control
	Counter Control
	Refresh Control
	Next    Control
}

// Controls returns the button descriptors for the given reference.
// count is the total number of pages; the previous and next controls are
// disabled at the first and last page respectively, and the counter shows
// the one-based position.
func Controls(ref Ref, count int) ControlSet {
	prevRef, nextRef := ref, ref
	prevRef.Index--
	nextRef.Index++

	return ControlSet{
		Prev:    Control{CustomID: prevRef.CustomID(), Disabled: ref.Index <= 0},
		Counter: Control{Label: fmt.Sprintf("%d/%d", ref.Index+1, count), Disabled: true},
		Refresh: Control{CustomID: ref.CustomID()},
		Next:    Control{CustomID: nextRef.CustomID(), Disabled: ref.Index >= count-1},
	}
}

// Handler bridges the manager into a component dispatcher. target extracts
// the message to re-render from the event. The handler is mutex-flagged so
// concurrent presses on the same message's controls do not interleave
// renders; set Group on the returned handler to gate all page navigation,
// or implement [Restricted] on a pager to gate one page type.
func Handler[E interact.Event](m *Manager, target func(E) interact.Updatable) component.Handler[E] {
	return component.Handler[E]{
		ID:    UpdateButtonID,
		Mutex: true,
		Func: func(ctx context.Context, c *component.Context[E], args string) error {
			ref, err := Decode(args)
			if err != nil {
				return err
			}

			p, ok := m.pager(ref.Type)
			if !ok {
				// The message predates this process; tell the user
				// instead of failing silently.
				m.logger.Debug("page reference to unregistered type",
					slog.String("page_type", ref.Type),
				)
				_, sendErr := c.Replies.Add(ctx, reply.Spec{
					Content: msgUnknownPage,
					Private: reply.Private(true),
				})
				return sendErr
			}

			if r, ok := p.(Restricted); ok {
				if err := access.Check(ctx, c.Access, r.Group()); err != nil {
					return err
				}
			}
			return update(ctx, p, ref, target(c.Event))
		},
	}
}
