package settings

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/onlylikes/config"
	"github.com/spacesedan/onlylikes/internal/models"
)

func TestMemoryStoreLastSetWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(models.Settings{})

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != models.DefaultSettings() {
		t.Errorf("initial settings = %+v, want defaults", got)
	}

	store.Set(ctx, models.Settings{Provider: models.ProviderOpenAI, Credential: "sk", ThresholdTier: models.TierAggressive})
	store.Set(ctx, models.Settings{Provider: "unknown", ThresholdTier: models.TierCautious})

	got, _ = store.Get(ctx)
	want := models.Settings{Provider: models.ProviderNone, ThresholdTier: models.TierCautious}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestThresholds(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(models.Settings{ThresholdTier: models.TierAggressive})

	got, err := Thresholds{Store: store}.Threshold(ctx)
	if err != nil || got != 0.7 {
		t.Errorf("Threshold() = %v, %v; want 0.7", got, err)
	}

	got, err = Thresholds{Store: failingStore{}}.Threshold(ctx)
	if err == nil {
		t.Error("expected an error from a failing store")
	}
	if got != models.DefaultThreshold {
		t.Errorf("Threshold() on error = %v, want %v", got, models.DefaultThreshold)
	}
}

func TestFieldsRoundTripCoercesMissingKeys(t *testing.T) {
	got := fromFields(map[string]string{models.SettingsKeyCredential: "k"})
	want := models.Settings{Provider: models.ProviderNone, Credential: "k", ThresholdTier: models.TierDefault}
	if got != want {
		t.Errorf("fromFields() = %+v, want %+v", got, want)
	}

	fields := toFields(models.Settings{Provider: models.ProviderAnthropic, ThresholdTier: "aggressive"})
	if fields[models.SettingsKeyProvider] != "anthropic" || fields[models.SettingsKeyThreshold] != "aggressive" {
		t.Errorf("toFields() = %v", fields)
	}
}

func TestOpenMemoryBackend(t *testing.T) {
	store, closeFn, err := Open(context.Background(), config.Config{SettingsBackend: config.SettingsBackendMemory})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer closeFn()
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("Open() returned %T, want *MemoryStore", store)
	}

	if _, _, err := Open(context.Background(), config.Config{SettingsBackend: "etcd"}); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context) (models.Settings, error) {
	return models.DefaultSettings(), errors.New("unavailable")
}

func (failingStore) Set(context.Context, models.Settings) error {
	return errors.New("unavailable")
}

type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := in.Key["profile"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[*in.TableName+"/"+key]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := in.Item["profile"].(*types.AttributeValueMemberS).Value
	f.items[*in.TableName+"/"+key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoStore(t *testing.T) {
	ctx := context.Background()
	db := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
	store := NewDynamoStore(db, "Settings", "alice")

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() on empty table error = %v", err)
	}
	if got != models.DefaultSettings() {
		t.Errorf("Get() on empty table = %+v, want defaults", got)
	}

	want := models.Settings{Provider: models.ProviderOpenAI, Credential: "sk-test", ThresholdTier: models.TierCautious}
	if err := store.Set(ctx, want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	item := db.items["Settings/alice"]
	if v, ok := item[models.SettingsKeyProvider].(*types.AttributeValueMemberS); !ok || v.Value != "openai" {
		t.Errorf("stored item has provider attribute %v", item[models.SettingsKeyProvider])
	}

	got, err = store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	other, _ := NewDynamoStore(db, "Settings", "bob").Get(ctx)
	if other != models.DefaultSettings() {
		t.Errorf("profiles leak into each other: %+v", other)
	}
}

type fakeHashes struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	err    error
}

func (f *fakeHashes) HGetAll(_ context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeHashes) HSet(_ context.Context, key string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.hashes[key] == nil {
		f.hashes[key] = map[string]string{}
	}
	for k, v := range fields {
		f.hashes[key][k] = v
	}
	return nil
}

func TestValkeyStore(t *testing.T) {
	ctx := context.Background()
	hashes := &fakeHashes{hashes: map[string]map[string]string{}}
	store := NewValkeyStore(hashes, "alice")

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() on missing hash error = %v", err)
	}
	if got != models.DefaultSettings() {
		t.Errorf("Get() on missing hash = %+v, want defaults", got)
	}

	want := models.Settings{Provider: models.ProviderAnthropic, Credential: "sk-ant", ThresholdTier: models.TierAggressive}
	if err := store.Set(ctx, want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	stored := hashes.hashes["onlylikes:settings:alice"]
	if stored[models.SettingsKeyProvider] != "anthropic" || stored[models.SettingsKeyCredential] != "sk-ant" || stored[models.SettingsKeyThreshold] != "aggressive" {
		t.Errorf("stored hash = %v", stored)
	}

	got, err = store.Get(ctx)
	if err != nil || got != want {
		t.Errorf("Get() = %+v, %v; want %+v", got, err, want)
	}

	hashes.hashes["onlylikes:settings:alice"][models.SettingsKeyThreshold] = "extreme"
	got, _ = store.Get(ctx)
	if got.ThresholdTier != models.TierDefault {
		t.Errorf("unknown tier read back as %q, want default", got.ThresholdTier)
	}

	if other, _ := NewValkeyStore(hashes, "bob").Get(ctx); other != models.DefaultSettings() {
		t.Errorf("profiles leak into each other: %+v", other)
	}
}

func TestValkeyStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := NewValkeyStore(&fakeHashes{err: errors.New("connection refused")}, "alice")

	got, err := store.Get(ctx)
	if err == nil {
		t.Error("expected a read error")
	}
	if got != models.DefaultSettings() {
		t.Errorf("Get() on error = %+v, want defaults", got)
	}
	if err := store.Set(ctx, models.DefaultSettings()); err == nil {
		t.Error("expected a write error")
	}
}
