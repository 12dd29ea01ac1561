package gate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/skillpath/skillpath/internal/domain"
)

// EventType classifies a session-change notification.
type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
	EventRefreshed EventType = "refreshed"
)

// Event is a session-change notification pushed by the auth service.
type Event struct {
	Type    EventType
	Session *domain.Session
}

// SessionSource is the injected handle to the external auth service.
// CurrentSession returns (nil, nil) when no session is persisted.
// Subscribe delivers session-change events until the returned stop
// function is called or the context ends.
type SessionSource interface {
	CurrentSession(ctx context.Context) (*domain.Session, error)
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}

// Action is the gate's decision for the active view.
type Action string

const (
	// ActionRender allows the protected content to render unchanged.
	ActionRender Action = "render"
	// ActionPlaceholder renders a neutral placeholder while the
	// initial session lookup is outstanding.
	ActionPlaceholder Action = "placeholder"
	// ActionRedirect sends the viewer to Target.
	ActionRedirect Action = "redirect"
)

// Decision tells the active view whether it may render or where the
// viewer must be sent instead.
type Decision struct {
	Action Action
	Target string
	// Replace discards the prior navigation history entry instead of
	// pushing a new one.
	Replace bool
}

// Gate tracks the current authentication session state and gates
// access to protected views. It owns one session lookup and one
// event subscription for its lifetime.
type Gate struct {
	source SessionSource

	mu      sync.Mutex
	loading bool
	session *domain.Session

	stop func()
	done chan struct{}
}

// New creates a gate in the loading state. No redirect decision is
// made until Start completes the initial session lookup.
func New(source SessionSource) *Gate {
	return &Gate{
		source:  source,
		loading: true,
	}
}

// Start performs the initial session lookup and begins listening for
// session-change events. A failed lookup is treated identically to an
// absent session.
func (g *Gate) Start(ctx context.Context) {
	session, err := g.source.CurrentSession(ctx)
	if err != nil {
		slog.Warn("session lookup failed, treating as signed out", "error", err)
		session = nil
	}

	g.mu.Lock()
	g.session = session
	g.loading = false
	g.mu.Unlock()

	events, stop, err := g.source.Subscribe(ctx)
	if err != nil {
		slog.Warn("session event subscription failed", "error", err)
		return
	}

	g.mu.Lock()
	g.stop = stop
	g.done = make(chan struct{})
	g.mu.Unlock()

	go g.consume(events)
}

func (g *Gate) consume(events <-chan Event) {
	defer close(g.done)
	for ev := range events {
		g.mu.Lock()
		switch ev.Type {
		case EventSignedOut:
			g.session = nil
		default:
			g.session = ev.Session
		}
		g.mu.Unlock()

		slog.Debug("session state changed", "event", ev.Type, "signed_in", ev.Session != nil)
	}
}

// Close tears down the event subscription.
func (g *Gate) Close() {
	g.mu.Lock()
	stop := g.stop
	done := g.done
	g.stop = nil
	g.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// Decide returns the gate's routing decision for a protected view:
// a placeholder while loading, a redirect to the sign-in entry point
// when no session is present, and render otherwise.
func (g *Gate) Decide() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.loading {
		return Decision{Action: ActionPlaceholder}
	}
	if g.session == nil {
		return Decision{Action: ActionRedirect, Target: RouteSignIn, Replace: true}
	}
	return Decision{Action: ActionRender}
}

// Session returns the current session, or nil while loading or when
// signed out.
func (g *Gate) Session() *domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

// Loading reports whether the initial session lookup is outstanding.
func (g *Gate) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loading
}
