package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/spacesedan/onlylikes/config"
	"github.com/spacesedan/onlylikes/internal/background"
	"github.com/spacesedan/onlylikes/internal/bridge"
	"github.com/spacesedan/onlylikes/internal/clients"
	"github.com/spacesedan/onlylikes/internal/clients/kafka_client"
	"github.com/spacesedan/onlylikes/internal/content"
	"github.com/spacesedan/onlylikes/internal/extractor"
	"github.com/spacesedan/onlylikes/internal/logging"
	"github.com/spacesedan/onlylikes/internal/models"
	"github.com/spacesedan/onlylikes/internal/monitoring"
	"github.com/spacesedan/onlylikes/internal/page"
	"github.com/spacesedan/onlylikes/internal/pipeline"
	"github.com/spacesedan/onlylikes/internal/sentiment"
	"github.com/spacesedan/onlylikes/internal/settings"
)

const (
	transportMemory = "memory"
	transportKafka  = "kafka"

	MAX_FRAGMENT_SIZE = 1024 * 1024
)

func loadConfig() config.Config {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	cfg := config.Load()
	logging.InitLoggerTo(os.Stderr, cfg.LogLevel)
	return cfg
}

func FilterAction(c *cli.Context) error {
	cfg := loadConfig()
	ctx := c.Context

	if c.Bool("watch") && c.String("insert-into") == "" {
		return fmt.Errorf("--watch needs --insert-into")
	}

	pageURL, err := url.Parse(c.String("url"))
	if err != nil {
		return fmt.Errorf("invalid --url: %w", err)
	}
	platform, ok := extractor.DetectPlatform(pageURL.Host)
	if !ok {
		return fmt.Errorf("unsupported site %q", pageURL.Host)
	}

	f, err := os.Open(c.String("input"))
	if err != nil {
		return err
	}
	doc, err := extractor.NewDocument(f)
	f.Close()
	if err != nil {
		return err
	}

	store, closeStore, err := settings.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	defer closeStore()

	contextID := uuid.NewString()
	runtime, closeRuntime, err := backgroundTransport(ctx, c.String("transport"), cfg, store, contextID)
	if err != nil {
		return err
	}
	defer closeRuntime()

	bgClient := bridge.NewClient(runtime, contextID, bridge.WithTimeout(cfg.BridgeTimeout))
	if err := bgClient.Start(ctx); err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithBatchSize(cfg.BatchSize),
		pipeline.WithBatchDelay(cfg.BatchDelay),
	}
	if c.Bool("veil") {
		opts = append(opts, pipeline.WithVeil())
	}
	if cfg.MarkerBackend == config.SettingsBackendValkey {
		vc, err := clients.NewValkeyClient(ctx, clients.ValkeyConfig{
			Address:  cfg.ValkeyAddress,
			Password: cfg.ValkeyPassword,
			UseTLS:   cfg.ValkeyTLS,
		})
		if err != nil {
			return err
		}
		defer vc.Close()
		opts = append(opts, pipeline.WithMarker(pipeline.NewValkeyMarker(vc, pageURL.Host+pageURL.Path, cfg.ProcessedTTL)))
	}

	window := bridge.NewBus()
	relay := content.NewRelay(doc, window, contextID, bgClient, opts...)
	if err := relay.Start(ctx); err != nil {
		return err
	}

	pageClient := bridge.NewClient(window, contextID, bridge.WithTimeout(cfg.BridgeTimeout))
	if err := pageClient.Start(ctx); err != nil {
		return err
	}

	ext, err := extractor.NewSelectorExtractor(doc, platform, nil)
	if err != nil {
		return err
	}

	controller := page.NewController(ext, pageClient, page.WithBatchPlan(cfg.BatchSize, cfg.BatchDelay))

	var runErr error
	if c.Bool("watch") {
		runErr = watchPage(ctx, c, controller, doc)
	} else {
		var filtered []models.FilteredComment
		var mine bool
		filtered, mine, runErr = controller.FilterPage(ctx)

		hidden := 0
		for _, fc := range filtered {
			if fc.Hidden {
				hidden++
			}
		}
		slog.Info("[Filter] Done",
			slog.String("platform", string(platform)),
			slog.Bool("user_post", mine),
			slog.Int("comments", len(filtered)),
			slog.Int("hidden", hidden))
	}
	// Whatever the relay already hid or showed stays in the output.
	relay.Wait()

	if err := writeDocument(c, doc); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("filter page: %w", runErr)
	}
	return nil
}

// watchPage runs the controller's watcher while fragments from stdin are
// inserted into the page, then waits for the last of them to be filtered.
func watchPage(ctx context.Context, c *cli.Context, controller *page.Controller, doc *extractor.Document) error {
	parent := c.String("insert-into")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- controller.Run(runCtx) }()

	select {
	case <-controller.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	inserted := 0
	scanner := bufio.NewScanner(c.App.Reader)
	scanner.Buffer(make([]byte, 64*1024), MAX_FRAGMENT_SIZE)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := doc.Insert(parent, line); err != nil {
			slog.Warn("[Filter] Failed to insert fragment",
				slog.String("parent", parent),
				slog.String("error", err.Error()))
			continue
		}
		inserted++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read fragments: %w", err)
	}

	if err := controller.Settle(ctx); err != nil {
		return err
	}
	cancel()
	if err := <-done; err != nil {
		return err
	}

	slog.Info("[Filter] Watch done",
		slog.Int("fragments", inserted))
	return nil
}

func writeDocument(c *cli.Context, doc *extractor.Document) error {
	out, err := doc.HTML()
	if err != nil {
		return err
	}
	if dest := c.String("output"); dest != "-" {
		return os.WriteFile(dest, []byte(out), 0o644)
	}
	_, err = fmt.Fprintln(c.App.Writer, out)
	return err
}

// backgroundTransport serves the background in process, or reaches a
// background process over kafka.
func backgroundTransport(ctx context.Context, kind string, cfg config.Config, store settings.Store, contextID string) (bridge.Transport, func(), error) {
	switch strings.ToLower(kind) {
	case transportKafka:
		kcfg := kafka_client.KafkaConfig{
			Broker:        cfg.KafkaBroker,
			GroupID:       cfg.KafkaGroupID,
			RequestTopic:  cfg.BridgeRequestTopic,
			ResponseTopic: cfg.BridgeResponseTopic,
		}
		producer, err := kafka_client.NewProducer(kcfg)
		if err != nil {
			return nil, nil, err
		}
		return bridge.NewKafkaClientTransport(kcfg, producer, contextID), func() { kafka_client.CloseProducer(producer) }, nil

	case transportMemory, "":
		bus := bridge.NewBus()
		healthy := &atomic.Bool{}
		healthy.Store(true)
		analyzer := sentiment.NewAnalyzer(store,
			sentiment.WithClientFactory(sentiment.DefaultClientFactory(cfg.OpenAIModel, cfg.AnthropicModel)),
			sentiment.WithHealthGate(healthy))
		go monitoring.MonitorProviderHealth(ctx, analyzer, healthy)

		svc := background.NewService(bus, analyzer, store)
		if err := svc.Start(ctx); err != nil {
			return nil, nil, err
		}
		return bus, svc.Wait, nil

	default:
		return nil, nil, fmt.Errorf("unknown transport %q", kind)
	}
}

func SettingsGetAction(c *cli.Context) error {
	cfg := loadConfig()
	store, closeStore, err := settings.Open(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	s, err := store.Get(c.Context)
	if err != nil {
		return err
	}
	s.Credential = maskCredential(s.Credential)

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		models.Settings
		ResolvedThreshold float64 `json:"resolvedThreshold"`
	}{s, s.Threshold()})
}

func SettingsSetAction(c *cli.Context) error {
	cfg := loadConfig()
	store, closeStore, err := settings.Open(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	s, err := store.Get(c.Context)
	if err != nil {
		return err
	}
	if c.IsSet("provider") {
		s.Provider = models.ParseProvider(c.String("provider"))
	}
	if c.IsSet("api-key") {
		s.Credential = c.String("api-key")
	}
	if c.IsSet("threshold") {
		s.ThresholdTier = models.ParseThresholdTier(c.String("threshold"))
	}

	if err := store.Set(c.Context, s); err != nil {
		return err
	}
	slog.Info("[Settings] Saved",
		slog.String("provider", string(s.Provider)),
		slog.String("threshold", string(s.ThresholdTier)),
		slog.Bool("credential", s.Credential != ""))
	return nil
}

func maskCredential(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
