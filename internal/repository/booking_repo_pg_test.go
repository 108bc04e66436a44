package repository

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool)
	assert.NotNil(t, repo)
}

func TestNotFound(t *testing.T) {
	err := notFound(pgx.ErrNoRows, "b-1")
	assert.EqualError(t, err, `goals "b-1" not found`)

	err = notFound(assert.AnError, "b-1")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "query goals b-1")
}
