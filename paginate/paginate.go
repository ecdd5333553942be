// Package paginate implements paged message content driven by component
// interactions. Applications register a [Pager] per paged content type;
// navigation buttons carry a compact page reference in their custom ID,
// and the bridging handler re-renders the message when one is pressed.
package paginate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/tmarback/interact"
	"github.com/tmarback/interact/access"
)

// UpdateButtonID is the handler ID all pagination buttons route to.
const UpdateButtonID = "page-update"

// Ref identifies one page of one paged content type. Extra carries
// pager-defined state (a query, a filter) and may itself contain the
// custom ID separator.
type Ref struct {
	Type  string
	Index int
	Extra string
}

// Encode renders the reference as custom ID arguments. Empty Extra is
// omitted; Decode treats the two forms identically.
func (r Ref) Encode() string {
	if r.Extra == "" {
		return fmt.Sprintf("%s%c%d", r.Type, interact.Separator, r.Index)
	}
	return fmt.Sprintf("%s%c%d%c%s", r.Type, interact.Separator, r.Index, interact.Separator, r.Extra)
}

// CustomID returns the full custom ID routing to the pagination handler.
func (r Ref) CustomID() string {
	return interact.MakeID(UpdateButtonID, r.Encode())
}

// Decode parses custom ID arguments into a Ref. The split is bounded to
// three fields so Extra keeps any further separators intact. The index
// must parse as a non-negative integer.
func Decode(args string) (Ref, error) {
	parts := strings.SplitN(args, string(interact.Separator), 3)
	if len(parts) < 2 {
		return Ref{}, fmt.Errorf("%w: %q", interact.ErrBadPageRef, args)
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return Ref{}, fmt.Errorf("%w: bad index %q", interact.ErrBadPageRef, parts[1])
	}
	if index < 0 {
		return Ref{}, fmt.Errorf("%w: negative index %d", interact.ErrBadPageRef, index)
	}
	ref := Ref{Type: parts[0], Index: index}
	if len(parts) == 3 {
		ref.Extra = parts[2]
	}
	return ref, nil
}

// Pager renders pages for one content type.
type Pager interface {
	// Type identifies the pager in page references. It must not contain
	// the custom ID separator.
	Type() string

	// Render produces the message content for one page. Extra is passed
	// through from the reference unchanged.
	Render(ctx context.Context, index int, extra string) (string, error)
}

// Restricted is an optional [Pager] capability restricting a page type to
// members of a group. The bridging handler checks it against the event's
// validator before rendering, so each paged content type can carry its own
// gate on top of the handler-level one.
type Restricted interface {
	Group() access.Group
}

// Manager holds the registered pagers and applies page updates.
// It is safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	pagers map[string]Pager
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New creates an empty pagination manager.
func New(opts ...Option) *Manager {
	m := &Manager{pagers: make(map[string]Pager)}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Register adds a pager. Unlike handler registration, page types are
// long-lived identifiers baked into messages already sent, so accidental
// replacement is rejected with [interact.ErrDuplicatePage] rather than
// silently changing what old buttons do.
func (m *Manager) Register(p Pager) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	typ := p.Type()
	if _, ok := m.pagers[typ]; ok {
		return fmt.Errorf("%w: %q", interact.ErrDuplicatePage, typ)
	}
	m.pagers[typ] = p
	return nil
}

// Types returns the registered page types.
func (m *Manager) Types() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, 0, len(m.pagers))
	for typ := range m.pagers {
		types = append(types, typ)
	}
	return types
}

func (m *Manager) pager(typ string) (Pager, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pagers[typ]
	return p, ok
}

// Update re-renders target to the page named by ref. Unknown page types
// fail with [interact.ErrUnknownPage]: messages outlive process restarts,
// so a reference to a type this process never registered is an expected
// condition, not a routing bug.
func (m *Manager) Update(ctx context.Context, ref Ref, target interact.Updatable) error {
	p, ok := m.pager(ref.Type)
	if !ok {
		return fmt.Errorf("%w: %q", interact.ErrUnknownPage, ref.Type)
	}
	return update(ctx, p, ref, target)
}

func update(ctx context.Context, p Pager, ref Ref, target interact.Updatable) error {
	content, err := p.Render(ctx, ref.Index, ref.Extra)
	if err != nil {
		return fmt.Errorf("render page %s/%d: %w", ref.Type, ref.Index, err)
	}
	return target.Update(ctx, content)
}
