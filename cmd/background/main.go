package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spacesedan/onlylikes/config"
	"github.com/spacesedan/onlylikes/internal/background"
	"github.com/spacesedan/onlylikes/internal/bridge"
	"github.com/spacesedan/onlylikes/internal/clients/kafka_client"
	"github.com/spacesedan/onlylikes/internal/logging"
	"github.com/spacesedan/onlylikes/internal/monitoring"
	"github.com/spacesedan/onlylikes/internal/sentiment"
	"github.com/spacesedan/onlylikes/internal/settings"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	cfg := config.Load()
	logging.InitLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := settings.Open(ctx, cfg)
	if err != nil {
		slog.Error("[Main] Failed to open settings store",
			slog.String("backend", cfg.SettingsBackend),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	kcfg := kafka_client.KafkaConfig{
		Broker:        cfg.KafkaBroker,
		GroupID:       cfg.KafkaGroupID,
		RequestTopic:  cfg.BridgeRequestTopic,
		ResponseTopic: cfg.BridgeResponseTopic,
	}

	producer, err := kafka_client.NewProducer(kcfg)
	for err != nil {
		slog.Warn("Kafka init failed, retrying...", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
		producer, err = kafka_client.NewProducer(kcfg)
	}
	defer kafka_client.CloseProducer(producer)

	providersHealthy := &atomic.Bool{}
	providersHealthy.Store(true)
	analyzer := sentiment.NewAnalyzer(store,
		sentiment.WithClientFactory(sentiment.DefaultClientFactory(cfg.OpenAIModel, cfg.AnthropicModel)),
		sentiment.WithHealthGate(providersHealthy))
	go monitoring.MonitorProviderHealth(ctx, analyzer, providersHealthy)

	svc := background.NewService(bridge.NewKafkaServerTransport(kcfg, producer), analyzer, store)
	if err := svc.Start(ctx); err != nil {
		slog.Error("[Main] Failed to start background service",
			slog.String("error", err.Error()))
		return
	}

	<-ctx.Done()
	slog.Info("[Main] Shutting down, waiting for in-flight requests")
	svc.Wait()
}
