package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Marker remembers which comment handles were already taken by a run. Claim
// reports true only for the first caller of a key.
type Marker interface {
	Claim(ctx context.Context, key string) (bool, error)
}

type MemoryMarker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryMarker() *MemoryMarker {
	return &MemoryMarker{seen: make(map[string]struct{})}
}

func (m *MemoryMarker) Claim(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = struct{}{}
	return true, nil
}

func (m *MemoryMarker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

const (
	PROCESSED_KEY_PREFIX = "onlylikes:processed:"
	PROCESSED_TTL        = 24 * time.Hour
)

// SetStore is the part of a valkey connection the marker uses.
type SetStore interface {
	SAdd(ctx context.Context, key, member string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// ValkeyMarker keeps the processed set in valkey so several relays on the
// same page share it. SADD answers 1 only for the caller that added the key.
type ValkeyMarker struct {
	client SetStore
	key    string
	ttl    time.Duration
}

func NewValkeyMarker(client SetStore, scope string, ttl time.Duration) *ValkeyMarker {
	if ttl <= 0 {
		ttl = PROCESSED_TTL
	}
	return &ValkeyMarker{
		client: client,
		key:    PROCESSED_KEY_PREFIX + scope,
		ttl:    ttl,
	}
}

func (m *ValkeyMarker) Claim(ctx context.Context, key string) (bool, error) {
	added, err := m.client.SAdd(ctx, m.key, key)
	if err != nil {
		return false, fmt.Errorf("[ValkeyMarker] failed to claim %s: %w", key, err)
	}

	if added == 1 {
		if err := m.client.Expire(ctx, m.key, m.ttl); err != nil {
			return true, fmt.Errorf("[ValkeyMarker] failed to set ttl: %w", err)
		}
	}
	return added == 1, nil
}
