package authinfra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lumera/academy/pkg/errx"
	"github.com/lumera/academy/pkg/iam/auth"
	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "oauth:state:"

// RedisStateManager backs the pending-state store with Redis, so multiple
// service instances can share one login flow. Expiry is native (SET ... EX)
// and single-use consumption is a GETDEL, which is atomic server-side.
type RedisStateManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStateManager creates a Redis-backed state manager
func NewRedisStateManager(client *redis.Client, ttl time.Duration) *RedisStateManager {
	if ttl <= 0 {
		ttl = auth.DefaultStateTTL
	}
	return &RedisStateManager{client: client, ttl: ttl}
}

// Save implements auth.StateManager
func (m *RedisStateManager) Save(ctx context.Context, redirectURI, codeVerifier string) (*auth.AuthState, error) {
	data := &auth.AuthState{
		State:        uuid.NewString(),
		RedirectURI:  redirectURI,
		CodeVerifier: codeVerifier,
		CreatedAt:    time.Now(),
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, errx.Wrap(err, "failed to encode auth state", errx.TypeInternal)
	}

	if err := m.client.Set(ctx, stateKeyPrefix+data.State, payload, m.ttl).Err(); err != nil {
		return nil, errx.Wrap(err, "failed to store auth state", errx.TypeInternal)
	}
	return data, nil
}

// Consume implements auth.StateManager
func (m *RedisStateManager) Consume(ctx context.Context, state string) (*auth.AuthState, error) {
	payload, err := m.client.GetDel(ctx, stateKeyPrefix+state).Bytes()
	if err == redis.Nil {
		return nil, auth.ErrInvalidState()
	}
	if err != nil {
		return nil, errx.Wrap(err, "failed to consume auth state", errx.TypeInternal)
	}

	var data auth.AuthState
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, errx.Wrap(err, "failed to decode auth state", errx.TypeInternal)
	}
	return &data, nil
}
