package settings

import (
	"context"
	"fmt"

	"github.com/spacesedan/onlylikes/internal/models"
)

const valkeyKeyPrefix = "onlylikes:settings:"

// HashStore is the part of a valkey connection the store uses.
type HashStore interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
}

// ValkeyStore keeps one hash per profile holding the three storage keys.
type ValkeyStore struct {
	client HashStore
	key    string
}

func NewValkeyStore(client HashStore, profile string) *ValkeyStore {
	return &ValkeyStore{client: client, key: valkeyKeyPrefix + profile}
}

func (v *ValkeyStore) Get(ctx context.Context) (models.Settings, error) {
	fields, err := v.client.HGetAll(ctx, v.key)
	if err != nil {
		return models.DefaultSettings(), fmt.Errorf("[ValkeyStore] failed to read settings: %w", err)
	}
	return fromFields(fields), nil
}

func (v *ValkeyStore) Set(ctx context.Context, s models.Settings) error {
	if err := v.client.HSet(ctx, v.key, toFields(s)); err != nil {
		return fmt.Errorf("[ValkeyStore] failed to write settings: %w", err)
	}
	return nil
}
