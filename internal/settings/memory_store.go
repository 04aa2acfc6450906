package settings

import (
	"context"
	"sync"

	"github.com/spacesedan/onlylikes/internal/models"
)

type MemoryStore struct {
	mu       sync.RWMutex
	settings models.Settings
}

func NewMemoryStore(initial models.Settings) *MemoryStore {
	return &MemoryStore{settings: initial.Normalize()}
}

func (m *MemoryStore) Get(_ context.Context) (models.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *MemoryStore) Set(_ context.Context, s models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s.Normalize()
	return nil
}
