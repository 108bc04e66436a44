package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/iraa22/WHEELWISE-B/internal/metrics"
	"github.com/iraa22/WHEELWISE-B/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var (
	// ErrInvalidCredentials is returned when the email or password does not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned by SignUp for an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrSessionNotFound is returned when a token is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")
)

type Accounts interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type Profiles interface {
	Append(ctx context.Context, profile domain.Profile) error
	GetByUID(ctx context.Context, uid string) (*domain.Profile, error)
}

type Sessions interface {
	Save(ctx context.Context, token string, user domain.User) error
	Lookup(ctx context.Context, token string) (*domain.User, error)
	Delete(ctx context.Context, token string) error
}

// Authenticator is the email/password identity service.
type Authenticator interface {
	SignUp(ctx context.Context, input SignUpInput) (*domain.User, error)
	SignIn(ctx context.Context, email, password string) (*domain.User, string, error)
	SignOut(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (*domain.User, error)
	Profile(ctx context.Context, uid string) (*domain.Profile, error)
}

type SignUpInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender"`
	Birthdate string `json:"birthdate"`
}

type Provider struct {
	accounts Accounts
	profiles Profiles
	sessions Sessions
	cost     int
	newToken func() string
	log      *zap.Logger
	metrics  *metrics.Metrics
}

type ProviderOption func(*Provider)

func WithBcryptCost(cost int) ProviderOption {
	return func(p *Provider) {
		if cost != 0 {
			p.cost = cost
		}
	}
}

func WithLogger(log *zap.Logger) ProviderOption {
	return func(p *Provider) { p.log = log }
}

func WithMetrics(m *metrics.Metrics) ProviderOption {
	return func(p *Provider) { p.metrics = m }
}

func NewProvider(accounts Accounts, profiles Profiles, sessions Sessions, opts ...ProviderOption) *Provider {
	p := &Provider{
		accounts: accounts,
		profiles: profiles,
		sessions: sessions,
		cost:     bcrypt.DefaultCost,
		newToken: uuid.NewString,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SignUp creates the account and appends the profile record. The profile write
// is not atomic with the account: a failed append is logged and the account stays.
func (p *Provider) SignUp(ctx context.Context, input SignUpInput) (*domain.User, error) {
	user, err := p.signUp(ctx, input)
	p.count("sign_up", err)
	return user, err
}

func (p *Provider) signUp(ctx context.Context, input SignUpInput) (*domain.User, error) {
	email, err := validateEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < minPasswordLength {
		return nil, &domain.ValidationError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{UID: uuid.NewString(), Email: email, PasswordHash: string(hash)}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	profile := domain.Profile{
		UID:       account.UID,
		Email:     email,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Gender:    strings.TrimSpace(input.Gender),
		Birthdate: strings.TrimSpace(input.Birthdate),
	}
	if err := p.profiles.Append(ctx, profile); err != nil {
		p.log.Error("append profile after sign-up", zap.String("uid", account.UID), zap.Error(err))
	}

	p.log.Info("account created", zap.String("uid", account.UID))
	return &domain.User{UID: account.UID, Email: email, DisplayName: profile.DisplayName()}, nil
}

// SignIn checks the password and opens a session. The token is returned once.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, token, err := p.signIn(ctx, email, password)
	p.count("sign_in", err)
	return user, token, err
}

func (p *Provider) signIn(ctx context.Context, email, password string) (*domain.User, string, error) {
	account, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	user := domain.User{UID: account.UID, Email: account.Email}
	if profile, err := p.profiles.GetByUID(ctx, account.UID); err == nil {
		user.DisplayName = profile.DisplayName()
	} else if !domain.IsNotFound(err) {
		p.log.Warn("load profile on sign-in", zap.String("uid", account.UID), zap.Error(err))
	}

	token := p.newToken()
	if err := p.sessions.Save(ctx, token, user); err != nil {
		return nil, "", fmt.Errorf("save session: %w", err)
	}
	return &user, token, nil
}

func (p *Provider) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return p.sessions.Delete(ctx, token)
}

func (p *Provider) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	user, err := p.sessions.Lookup(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

func (p *Provider) Profile(ctx context.Context, uid string) (*domain.Profile, error) {
	return p.profiles.GetByUID(ctx, uid)
}

func (p *Provider) count(kind string, err error) {
	if p.metrics != nil {
		p.metrics.AuthAttempts.WithLabelValues(kind, metrics.Outcome(err)).Inc()
	}
}

func validateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", &domain.ValidationError{Field: "email", Message: "is not a valid address"}
	}
	return email, nil
}

var _ Authenticator = (*Provider)(nil)
