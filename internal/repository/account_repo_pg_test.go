package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewAccountRepository(t *testing.T) {
	repo := NewAccountRepository(&pgxpool.Pool{})
	assert.NotNil(t, repo)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alex@example.com", normalizeEmail("  Alex@Example.COM "))
}
