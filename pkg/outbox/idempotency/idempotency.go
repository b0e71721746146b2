// Package idempotency records which deliveries a consumer has already
// handled. Keys look like `mkt:idempotency:<scope>:<consumer>:<id>`.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/marketplace-backend/pkg/redis"
)

const (
	ScopeEvents   = "evt:processed"
	ScopeWebhooks = "webhook:received"
)

// Manager claims delivery ids with SETNX so only the first attempt proceeds.
type Manager struct {
	store redis.IdempotencyStore
	scope string
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, scope string, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if strings.TrimSpace(scope) == "" {
		return nil, errors.New("idempotency scope is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, scope: scope, ttl: ttl}, nil
}

// Claim reports whether id was already claimed by consumer. When it was not,
// the claim is recorded for the configured TTL.
func (m *Manager) Claim(ctx context.Context, consumer, id string) (bool, error) {
	key, err := m.key(consumer, id)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release drops a claim so a failed delivery can be retried.
func (m *Manager) Release(ctx context.Context, consumer, id string) error {
	key, err := m.key(consumer, id)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer, id string) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("delivery id is required")
	}
	return m.store.IdempotencyKey(fmt.Sprintf("%s:%s", m.scope, consumer), id), nil
}
