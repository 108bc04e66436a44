package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/iraa22/WHEELWISE-B/config"
	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore maps session tokens to signed-in users.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(cfg config.RedisConfig, ttl time.Duration) *RedisSessionStore {
	return NewRedisSessionStoreWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		ttl,
	)
}

func NewRedisSessionStoreWithClient(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (c *RedisSessionStore) Save(ctx context.Context, token string, user domain.User) error {
	payload, err := json.Marshal(sessionPayload{UID: user.UID, Email: user.Email, DisplayName: user.DisplayName})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionKey(token), payload, c.ttl).Err()
}

// Lookup returns nil, nil when the token is unknown or expired.
func (c *RedisSessionStore) Lookup(ctx context.Context, token string) (*domain.User, error) {
	data, err := c.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var p sessionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &domain.User{UID: p.UID, Email: p.Email, DisplayName: p.DisplayName}, nil
}

func (c *RedisSessionStore) Delete(ctx context.Context, token string) error {
	return c.client.Del(ctx, sessionKey(token)).Err()
}

func (c *RedisSessionStore) Close() error {
	return c.client.Close()
}

type sessionPayload struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

func sessionKey(token string) string {
	return "session:" + token
}
