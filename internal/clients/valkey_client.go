package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

type ValkeyConfig struct {
	Address  string
	Password string
	UseTLS   bool
}

type ValkeyClient struct {
	Client valkey.Client
	cfg    ValkeyConfig
	mu     sync.RWMutex
}

func NewValkeyClient(ctx context.Context, cfg ValkeyConfig) (*ValkeyClient, error) {
	client, err := dialValkey(ctx, cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey",
		slog.String("address", cfg.Address))
	return &ValkeyClient{Client: client, cfg: cfg}, nil
}

func dialValkey(ctx context.Context, cfg ValkeyConfig) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.Address},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}
	return client, nil
}

func (vc *ValkeyClient) client() valkey.Client {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.Client
}

func (vc *ValkeyClient) recreateClient(ctx context.Context) {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	client, err := dialValkey(ctx, vc.cfg)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed",
			slog.String("error", err.Error()))
		return
	}

	vc.Client.Close()
	vc.Client = client
	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
}

func (vc *ValkeyClient) Close() {
	vc.client().Close()
}

// B exposes the command builder of the current connection.
func (vc *ValkeyClient) B() valkey.Builder {
	return vc.client().B()
}

func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	// Pinned so the command survives being sent more than once.
	completed = completed.Pin()

	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.client().Do(ctx, completed)
		if result.Error() == nil || valkey.IsValkeyNil(result.Error()) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		if isConnectionError(result.Error()) {
			vc.recreateClient(ctx)
		}
		if ctx.Err() != nil {
			break
		}
		time.Sleep(250 * time.Millisecond)
	}

	return result
}

// SAdd adds member to the set at key and returns how many members were new.
func (vc *ValkeyClient) SAdd(ctx context.Context, key, member string) (int64, error) {
	return vc.DoWithRetry(ctx, vc.B().Sadd().Key(key).Member(member).Build(), MAX_RETRIES).AsInt64()
}

func (vc *ValkeyClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return vc.DoWithRetry(ctx, vc.B().Expire().Key(key).Seconds(int64(ttl.Seconds())).Build(), MAX_RETRIES).Error()
}

// HGetAll returns every field of the hash at key, empty when it does not exist.
func (vc *ValkeyClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return vc.DoWithRetry(ctx, vc.B().Hgetall().Key(key).Build(), MAX_RETRIES).AsStrMap()
}

func (vc *ValkeyClient) HSet(ctx context.Context, key string, fields map[string]string) error {
	cmd := vc.B().Hset().Key(key).FieldValue()
	for field, value := range fields {
		cmd = cmd.FieldValue(field, value)
	}
	return vc.DoWithRetry(ctx, cmd.Build(), MAX_RETRIES).Error()
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
