package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iraa22/WHEELWISE-B/internal/auth"
	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/iraa22/WHEELWISE-B/internal/metrics"
	"github.com/iraa22/WHEELWISE-B/internal/service/booking"
	"github.com/iraa22/WHEELWISE-B/internal/service/form"
	"go.uber.org/zap"
)

const settleTimeout = 2 * time.Second

type AuthClient interface {
	SignIn(ctx context.Context, email, password string) (*domain.User, error)
	SignUp(ctx context.Context, input auth.SignUpInput) (*domain.User, error)
	SignOut(ctx context.Context) error
	Profile(ctx context.Context) (*domain.Profile, error)
	Token() string
}

// SessionView is the read side of the session gate.
type SessionView interface {
	State() domain.SessionState
	User() *domain.User
	UserID() *string
	Changes(ctx context.Context) <-chan domain.Session
}

type Deps struct {
	Auth     AuthClient
	Session  SessionView
	Bookings booking.BookingUseCase
	Uploader form.Uploader
}

// screen renders one view, reads input and returns the next view. nil quits.
type screen func(ctx context.Context) screen

type App struct {
	in   Prompter
	out  io.Writer
	deps Deps

	tokens      TokenStore
	redirector  *Redirector
	loc         *time.Location
	placeholder string
	log         *zap.Logger
	metrics     *metrics.Metrics
}

type Option func(*App)

func WithTokenStore(s TokenStore) Option {
	return func(a *App) { a.tokens = s }
}

func WithRedirector(r *Redirector) Option {
	return func(a *App) { a.redirector = r }
}

func WithLocation(loc *time.Location) Option {
	return func(a *App) { a.loc = loc }
}

func WithPlaceholderImage(url string) Option {
	return func(a *App) {
		if url != "" {
			a.placeholder = url
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(a *App) { a.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

func NewApp(in Prompter, out io.Writer, deps Deps, opts ...Option) *App {
	a := &App{
		in:          in,
		out:         out,
		deps:        deps,
		tokens:      nopTokenStore{},
		redirector:  NewRedirector(),
		loc:         time.Local,
		placeholder: domain.DefaultImage,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run shows screens until the user quits, input ends or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	next := a.home
	for next != nil {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if a.redirector.take() && a.deps.Session.State() != domain.SessionAuthenticated {
			next = a.signIn
		}
		next = next(ctx)
	}
	return nil
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

// ask returns false when input has ended.
func (a *App) ask(prompt string) (string, bool) {
	line, err := a.in.ReadLine(prompt)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(line), true
}

// protect sends signed-out users to the sign-in screen.
func (a *App) protect(s screen) screen {
	return func(ctx context.Context) screen {
		if a.deps.Session.State() != domain.SessionAuthenticated {
			return a.signIn
		}
		return s(ctx)
	}
}

// settle runs action and waits for the gate to reach want.
func (a *App) settle(ctx context.Context, want domain.SessionState, action func() error) error {
	wctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	changes := a.deps.Session.Changes(wctx)
	if err := action(); err != nil {
		return err
	}
	for a.deps.Session.State() != want {
		if _, ok := <-changes; !ok {
			return nil
		}
	}
	return nil
}

func (a *App) home(ctx context.Context) screen {
	return a.protect(func(ctx context.Context) screen {
		name := "traveler"
		if u := a.deps.Session.User(); u != nil {
			name = u.Email
			if u.DisplayName != "" {
				name = u.DisplayName
			}
		}
		a.printf("\nWheelWise | welcome, %s\n", name)
		a.printf("  1) My bookings\n  2) New booking\n  3) Profile\n  4) About\n  5) Sign out\n  q) Quit\n")
		choice, ok := a.ask("home> ")
		if !ok {
			return nil
		}
		switch choice {
		case "1":
			return a.list
		case "2":
			return a.editor("")
		case "3":
			return a.profile
		case "4":
			return a.about
		case "5":
			return a.signOut
		case "q", "quit":
			return nil
		default:
			a.printf("Unknown option %q\n", choice)
			return a.home
		}
	})(ctx)
}

func (a *App) signIn(ctx context.Context) screen {
	a.printf("\nSign in (type \"signup\" to create an account, \"quit\" to exit)\n")
	email, ok := a.ask("email: ")
	if !ok {
		return nil
	}
	switch email {
	case "quit", "q":
		return nil
	case "signup":
		return a.signUp
	}
	password, err := a.in.ReadPassword("password: ")
	if err != nil {
		return nil
	}

	err = a.settle(ctx, domain.SessionAuthenticated, func() error {
		_, err := a.deps.Auth.SignIn(ctx, email, password)
		return err
	})
	if err != nil {
		a.printf("Sign in failed: %s\n", authMessage(err))
		return a.signIn
	}
	a.saveToken()
	return a.home
}

func (a *App) signUp(ctx context.Context) screen {
	a.printf("\nCreate an account\n")
	var input auth.SignUpInput
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"first name: ", &input.FirstName},
		{"last name: ", &input.LastName},
		{"gender: ", &input.Gender},
		{"birthdate (YYYY-MM-DD): ", &input.Birthdate},
		{"email: ", &input.Email},
	}
	for _, f := range fields {
		v, ok := a.ask(f.prompt)
		if !ok {
			return nil
		}
		*f.dst = v
	}
	password, err := a.in.ReadPassword("password: ")
	if err != nil {
		return nil
	}
	input.Password = password

	err = a.settle(ctx, domain.SessionAuthenticated, func() error {
		_, err := a.deps.Auth.SignUp(ctx, input)
		return err
	})
	if err != nil {
		a.printf("Sign up failed: %s\n", authMessage(err))
		return a.signIn
	}
	a.printf("Sign up successful.\n")
	a.saveToken()
	return a.home
}

func (a *App) signOut(ctx context.Context) screen {
	err := a.settle(ctx, domain.SessionUnauthenticated, func() error {
		return a.deps.Auth.SignOut(ctx)
	})
	if err != nil {
		a.log.Warn("sign out", zap.Error(err))
	}
	if err := a.tokens.Clear(); err != nil {
		a.log.Warn("clear token", zap.Error(err))
	}
	a.redirector.take()
	a.printf("Signed out.\n")
	return a.signIn
}

func (a *App) profile(ctx context.Context) screen {
	return a.protect(func(ctx context.Context) screen {
		p, err := a.deps.Auth.Profile(ctx)
		if err != nil && !domain.IsNotFound(err) {
			a.printf("Could not load profile: %v\n", err)
			return a.home
		}
		if p == nil {
			u := a.deps.Session.User()
			if u == nil {
				return a.signIn
			}
			p = &domain.Profile{UID: u.UID, Email: u.Email}
		}
		a.printf("\nProfile\n  Name:      %s\n  Email:     %s\n  Gender:    %s\n  Birthdate: %s\n",
			p.DisplayName(), p.Email, p.Gender, p.Birthdate)
		if _, ok := a.ask("press enter to go back "); !ok {
			return nil
		}
		return a.home
	})(ctx)
}

func (a *App) about(ctx context.Context) screen {
	a.printf("\nWheelWise books rides for travelers: pick a destination, a car, a date and\n")
	a.printf("the number of passengers, and keep track of every trip in one list.\n")
	if _, ok := a.ask("press enter to go back "); !ok {
		return nil
	}
	return a.home
}

func (a *App) list(ctx context.Context) screen {
	return a.protect(func(ctx context.Context) screen {
		items, err := a.deps.Bookings.ListAll(ctx)
		if err != nil {
			a.printf("Could not load bookings: %v\n", err)
		}
		a.printBookings(items)
		a.printf("  <n>) open booking   n) new   r) refresh   b) back\n")
		choice, ok := a.ask("bookings> ")
		if !ok {
			return nil
		}
		switch choice {
		case "n":
			return a.editor("")
		case "r", "":
			return a.list
		case "b":
			return a.home
		}
		idx, err := strconv.Atoi(choice)
		if err != nil || idx < 1 || idx > len(items) {
			a.printf("No booking %q\n", choice)
			return a.list
		}
		return a.detail(items[idx-1].ID)
	})(ctx)
}

func (a *App) printBookings(items []domain.Booking) {
	if len(items) == 0 {
		a.printf("\nNo bookings yet.\n")
		return
	}
	a.printf("\n")
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTRAVELER\tDESTINATION\tCAR\tDATE\tPASSENGERS")
	for i, b := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n",
			i+1, b.TravelerName, b.Destination, b.Car, b.Date.In(a.loc).Format("2006-01-02 15:04"), b.Passengers)
	}
	tw.Flush()
}

func (a *App) detail(id string) screen {
	return a.protect(func(ctx context.Context) screen {
		b, err := a.deps.Bookings.Get(ctx, id)
		if err != nil {
			a.printf("Could not load booking: %v\n", err)
			return a.list
		}
		a.printf("\n%s to %s\n  Car:        %s\n  Date:       %s\n  Passengers: %d\n  Image:      %s\n",
			b.TravelerName, b.Destination, b.Car, b.Date.In(a.loc).Format("Mon 2 Jan 2006 15:04"), b.Passengers, b.Image)
		a.printf("  e) edit   d) delete   b) back\n")
		choice, ok := a.ask("booking> ")
		if !ok {
			return nil
		}
		switch choice {
		case "e":
			return a.editor(id)
		case "d":
			return a.confirmDelete(b)
		default:
			return a.list
		}
	})
}

func (a *App) confirmDelete(b *domain.Booking) screen {
	return a.protect(func(ctx context.Context) screen {
		answer, ok := a.ask(fmt.Sprintf("Delete booking for %s to %s? [y/N] ", b.TravelerName, b.Destination))
		if !ok {
			return nil
		}
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			return a.detail(b.ID)
		}
		if err := a.deps.Bookings.Delete(ctx, b.ID); err != nil && !domain.IsNotFound(err) {
			a.printf("Delete failed: %v\n", err)
			return a.detail(b.ID)
		}
		a.printf("Booking deleted.\n")
		return a.list
	})
}

func (a *App) saveToken() {
	if err := a.tokens.Save(a.deps.Auth.Token()); err != nil {
		a.log.Warn("save token", zap.Error(err))
	}
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "wrong email or password"
	case errors.Is(err, auth.ErrEmailTaken):
		return "that email already has an account"
	default:
		return err.Error()
	}
}

type nopTokenStore struct{}

func (nopTokenStore) Load() (string, error) { return "", nil }
func (nopTokenStore) Save(string) error     { return nil }
func (nopTokenStore) Clear() error          { return nil }
