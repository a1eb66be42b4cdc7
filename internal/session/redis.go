package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// sessionKeyPrefix namespaces session tokens in Redis.
	sessionKeyPrefix = "session:"
	// loginKeyPrefix namespaces in-flight OAuth states in Redis.
	loginKeyPrefix = "login:"
)

// Redis stores sessions in Redis so they survive process restarts.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed session store.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

// Create mints a new session token for identity.
func (r *Redis) Create(ctx context.Context, identity string, ttl time.Duration) (*Session, error) {
	s := &Session{
		Token:     NewToken(),
		Identity:  identity,
		ExpiresAt: time.Now().Add(ttl),
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKeyPrefix+s.Token, data, ttl).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return s, nil
}

// Resolve returns the identity behind token.
func (r *Redis) Resolve(ctx context.Context, token string) (string, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		// Corrupted entry - treat as missing
		return "", ErrSessionNotFound
	}

	return s.Identity, nil
}

// Delete drops a session.
func (r *Redis) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, sessionKeyPrefix+token).Err()
}

// PutLogin stores in-flight OAuth state with a short TTL.
func (r *Redis) PutLogin(ctx context.Context, state string, login *Login) error {
	data, err := json.Marshal(login)
	if err != nil {
		return fmt.Errorf("marshal login state: %w", err)
	}

	return r.client.Set(ctx, loginKeyPrefix+state, data, loginTTL).Err()
}

// TakeLogin returns and removes the login state for state.
func (r *Redis) TakeLogin(ctx context.Context, state string) (*Login, error) {
	data, err := r.client.GetDel(ctx, loginKeyPrefix+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrLoginNotFound
		}
		return nil, fmt.Errorf("take login state: %w", err)
	}

	var l Login
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, ErrLoginNotFound
	}

	return &l, nil
}

// Ping checks Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
