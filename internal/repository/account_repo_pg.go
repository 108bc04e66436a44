package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrEmailTaken is returned when an account with the same email already exists.
var ErrEmailTaken = errors.New("email already registered")

// AccountRepository stores login credentials.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type PGAccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) AccountRepository {
	return &PGAccountRepository{db: db}
}

func (r *PGAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	err := r.db.QueryRow(ctx, `INSERT INTO accounts (uid, email, password_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		account.UID, normalizeEmail(account.Email), account.PasswordHash).Scan(&account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *PGAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var a domain.Account
	err := r.db.QueryRow(ctx, `SELECT uid::text, email, password_hash, created_at FROM accounts WHERE email = $1`, normalizeEmail(email)).
		Scan(&a.UID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Collection: "accounts", ID: email}
		}
		return nil, fmt.Errorf("select account: %w", err)
	}
	return &a, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ AccountRepository = (*PGAccountRepository)(nil)
