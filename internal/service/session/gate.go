package session

import (
	"context"
	"errors"
	"sync"

	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"go.uber.org/zap"
)

// AuthStream emits the signed-in user on every change, nil for none.
type AuthStream interface {
	OnAuthStateChange(ctx context.Context) (<-chan *domain.User, error)
}

var ErrAlreadyStarted = errors.New("session gate already started")

// Gate tracks whether anyone is signed in. It starts Unknown and leaves that
// state on the first emission of the stream.
type Gate struct {
	stream     AuthStream
	onRedirect func()
	log        *zap.Logger

	mu       sync.Mutex
	session  domain.Session
	known    chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	watchers map[chan domain.Session]struct{}
}

type Option func(*Gate)

// WithRedirect is called whenever the gate moves to Unauthenticated.
func WithRedirect(fn func()) Option {
	return func(g *Gate) { g.onRedirect = fn }
}

func WithLogger(log *zap.Logger) Option {
	return func(g *Gate) { g.log = log }
}

func NewGate(stream AuthStream, opts ...Option) *Gate {
	g := &Gate{
		stream:     stream,
		onRedirect: func() {},
		log:        zap.NewNop(),
		session:    domain.Session{State: domain.SessionUnknown},
		known:      make(chan struct{}),
		watchers:   make(map[chan domain.Session]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start subscribes to the auth stream. The subscription lives until Stop or
// until ctx is cancelled.
func (g *Gate) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.cancel != nil {
		g.mu.Unlock()
		return ErrAlreadyStarted
	}
	subCtx, cancel := context.WithCancel(ctx)
	users, err := g.stream.OnAuthStateChange(subCtx)
	if err != nil {
		g.mu.Unlock()
		cancel()
		return err
	}
	done := make(chan struct{})
	g.cancel = cancel
	g.done = done
	g.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-subCtx.Done():
				return
			case user, ok := <-users:
				if !ok {
					return
				}
				g.apply(user)
			}
		}
	}()
	return nil
}

// Stop unsubscribes and waits for the listener to exit. The last state is kept.
func (g *Gate) Stop() {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (g *Gate) apply(user *domain.User) {
	next := domain.Session{State: domain.SessionUnauthenticated}
	if user != nil {
		u := *user
		next = domain.Session{State: domain.SessionAuthenticated, User: &u}
	}

	g.mu.Lock()
	prev := g.session.State
	g.session = next
	if prev == domain.SessionUnknown {
		close(g.known)
	}
	for w := range g.watchers {
		select {
		case <-w:
		default:
		}
		w <- next
	}
	g.mu.Unlock()

	if prev != next.State {
		g.log.Info("session state changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", next.State))
	}
	if next.State == domain.SessionUnauthenticated && prev != domain.SessionUnauthenticated {
		g.onRedirect()
	}
}

func (g *Gate) Session() domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (g *Gate) State() domain.SessionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.State
}

func (g *Gate) User() *domain.User {
	return g.Session().User
}

// UserID is the signed-in uid or nil.
func (g *Gate) UserID() *string {
	if u := g.User(); u != nil {
		uid := u.UID
		return &uid
	}
	return nil
}

// WaitKnown blocks until the first emission arrives or ctx is done.
func (g *Gate) WaitKnown(ctx context.Context) (domain.Session, error) {
	select {
	case <-g.known:
		return g.Session(), nil
	case <-ctx.Done():
		return g.Session(), ctx.Err()
	}
}

// Changes delivers the latest session after each emission. Slow readers only
// see the newest value. The channel is closed once ctx is done.
func (g *Gate) Changes(ctx context.Context) <-chan domain.Session {
	ch := make(chan domain.Session, 1)
	g.mu.Lock()
	g.watchers[ch] = struct{}{}
	g.mu.Unlock()

	go func() {
		<-ctx.Done()
		g.mu.Lock()
		delete(g.watchers, ch)
		close(ch)
		g.mu.Unlock()
	}()
	return ch
}
