// Package settings holds the user's provider choice, credential and
// threshold tier behind a small key-value store contract.
package settings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spacesedan/onlylikes/config"
	"github.com/spacesedan/onlylikes/internal/clients"
	"github.com/spacesedan/onlylikes/internal/models"
)

// Store reads and writes Settings. Get coerces missing keys to defaults.
type Store interface {
	Get(ctx context.Context) (models.Settings, error)
	Set(ctx context.Context, s models.Settings) error
}

// Open builds the store selected by cfg.SettingsBackend. The returned close
// function releases the backend connection.
func Open(ctx context.Context, cfg config.Config) (Store, func(), error) {
	switch cfg.SettingsBackend {
	case config.SettingsBackendValkey:
		vc, err := clients.NewValkeyClient(ctx, clients.ValkeyConfig{
			Address:  cfg.ValkeyAddress,
			Password: cfg.ValkeyPassword,
			UseTLS:   cfg.ValkeyTLS,
		})
		if err != nil {
			return nil, nil, err
		}
		return NewValkeyStore(vc, cfg.SettingsProfile), vc.Close, nil

	case config.SettingsBackendDynamoDB:
		db, err := clients.NewDynamoDBClient(ctx, clients.AWSConfig{
			Region:   cfg.AWSRegion,
			Endpoint: cfg.AWSEndpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		return NewDynamoStore(db, cfg.SettingsTable, cfg.SettingsProfile), func() {}, nil

	case config.SettingsBackendMemory, "":
		slog.Info("[Settings] Using in-memory settings store")
		return NewMemoryStore(models.DefaultSettings()), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown settings backend %q", cfg.SettingsBackend)
	}
}

// Thresholds resolves the user's threshold tier to its numeric cutoff.
type Thresholds struct {
	Store Store
}

func (t Thresholds) Threshold(ctx context.Context) (float64, error) {
	s, err := t.Store.Get(ctx)
	if err != nil {
		return models.DefaultThreshold, err
	}
	return s.Threshold(), nil
}

func fromFields(fields map[string]string) models.Settings {
	return models.Settings{
		Provider:      models.Provider(fields[models.SettingsKeyProvider]),
		Credential:    fields[models.SettingsKeyCredential],
		ThresholdTier: models.ThresholdTier(fields[models.SettingsKeyThreshold]),
	}.Normalize()
}

func toFields(s models.Settings) map[string]string {
	s = s.Normalize()
	return map[string]string{
		models.SettingsKeyProvider:   string(s.Provider),
		models.SettingsKeyCredential: s.Credential,
		models.SettingsKeyThreshold:  string(s.ThresholdTier),
	}
}
