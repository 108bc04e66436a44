package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/iraa22/WHEELWISE-B/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) Append(ctx context.Context, profile domain.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfiles) GetByUID(ctx context.Context, uid string) (*domain.Profile, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

// memorySessions stands in for the redis session store.
type memorySessions struct {
	users map[string]domain.User
}

func newMemorySessions() *memorySessions {
	return &memorySessions{users: make(map[string]domain.User)}
}

func (s *memorySessions) Save(_ context.Context, token string, user domain.User) error {
	s.users[token] = user
	return nil
}

func (s *memorySessions) Lookup(_ context.Context, token string) (*domain.User, error) {
	u, ok := s.users[token]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *memorySessions) Delete(_ context.Context, token string) error {
	delete(s.users, token)
	return nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestProvider_SignUp(t *testing.T) {
	accounts := new(MockAccounts)
	profiles := new(MockProfiles)
	p := NewProvider(accounts, profiles, newMemorySessions(), WithBcryptCost(bcrypt.MinCost))

	accounts.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Account) bool {
		return a.Email == "alex@example.com" && a.UID != "" &&
			bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("secret1")) == nil
	})).Return(nil)
	profiles.On("Append", mock.Anything, mock.MatchedBy(func(pr domain.Profile) bool {
		return pr.FirstName == "Alex" && pr.LastName == "Doe" && pr.Email == "alex@example.com"
	})).Return(nil)

	user, err := p.SignUp(context.Background(), SignUpInput{
		Email: " Alex@Example.com ", Password: "secret1", FirstName: "Alex", LastName: "Doe",
	})

	require.NoError(t, err)
	assert.Equal(t, "alex@example.com", user.Email)
	assert.Equal(t, "Alex Doe", user.DisplayName)
	accounts.AssertExpectations(t)
	profiles.AssertExpectations(t)
}

func TestProvider_SignUpValidation(t *testing.T) {
	accounts := new(MockAccounts)
	p := NewProvider(accounts, new(MockProfiles), newMemorySessions())

	_, err := p.SignUp(context.Background(), SignUpInput{Email: "not-an-email", Password: "secret1"})
	assert.True(t, domain.IsValidation(err))

	_, err = p.SignUp(context.Background(), SignUpInput{Email: "a@b.co", Password: "12345"})
	assert.True(t, domain.IsValidation(err))

	accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProvider_SignUpEmailTaken(t *testing.T) {
	accounts := new(MockAccounts)
	p := NewProvider(accounts, new(MockProfiles), newMemorySessions(), WithBcryptCost(bcrypt.MinCost))
	accounts.On("Create", mock.Anything, mock.Anything).Return(repository.ErrEmailTaken)

	_, err := p.SignUp(context.Background(), SignUpInput{Email: "a@b.co", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestProvider_SignUpKeepsAccountWhenProfileFails(t *testing.T) {
	accounts := new(MockAccounts)
	profiles := new(MockProfiles)
	p := NewProvider(accounts, profiles, newMemorySessions(), WithBcryptCost(bcrypt.MinCost))
	accounts.On("Create", mock.Anything, mock.Anything).Return(nil)
	profiles.On("Append", mock.Anything, mock.Anything).Return(errors.New("db down"))

	user, err := p.SignUp(context.Background(), SignUpInput{Email: "a@b.co", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", user.Email)
}

func TestProvider_SignInAndResolve(t *testing.T) {
	accounts := new(MockAccounts)
	profiles := new(MockProfiles)
	sessions := newMemorySessions()
	p := NewProvider(accounts, profiles, sessions)

	accounts.On("GetByEmail", mock.Anything, "a@b.co").
		Return(&domain.Account{UID: "u1", Email: "a@b.co", PasswordHash: hashed(t, "secret1")}, nil)
	profiles.On("GetByUID", mock.Anything, "u1").
		Return(&domain.Profile{UID: "u1", FirstName: "Alex"}, nil)

	user, token, err := p.SignIn(context.Background(), "a@b.co", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "Alex", user.DisplayName)

	resolved, err := p.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", resolved.UID)

	require.NoError(t, p.SignOut(context.Background(), token))
	_, err = p.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestProvider_SignInWrongPassword(t *testing.T) {
	accounts := new(MockAccounts)
	p := NewProvider(accounts, new(MockProfiles), newMemorySessions())
	accounts.On("GetByEmail", mock.Anything, "a@b.co").
		Return(&domain.Account{UID: "u1", Email: "a@b.co", PasswordHash: hashed(t, "secret1")}, nil)

	_, _, err := p.SignIn(context.Background(), "a@b.co", "wrong!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProvider_SignInUnknownEmail(t *testing.T) {
	accounts := new(MockAccounts)
	p := NewProvider(accounts, new(MockProfiles), newMemorySessions())
	accounts.On("GetByEmail", mock.Anything, "nobody@b.co").
		Return(nil, &domain.NotFoundError{Collection: "accounts", ID: "nobody@b.co"})

	_, _, err := p.SignIn(context.Background(), "nobody@b.co", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProvider_ResolveEmptyToken(t *testing.T) {
	p := NewProvider(new(MockAccounts), new(MockProfiles), newMemorySessions())
	_, err := p.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
