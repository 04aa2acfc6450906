package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/onlylikes/internal/clients/kafka_client"
)

// KafkaTransport carries bridge messages between processes. Requests and
// responses use separate topics; the message key is the source so every
// call from one world lands on the same partition in order.
type KafkaTransport struct {
	cfg       kafka_client.KafkaConfig
	producer  *kafka.Producer
	postTopic string
	readTopic string
	groupID   string
	fromEnd   bool
}

// NewKafkaClientTransport is the calling side: it posts requests and reads
// responses. Each source reads with its own consumer group so every source
// sees the full response stream and keeps only its own messages. The group
// is new on every run, so it reads from the end of each partition as of the
// moment it joins.
func NewKafkaClientTransport(cfg kafka_client.KafkaConfig, producer *kafka.Producer, source string) *KafkaTransport {
	return &KafkaTransport{
		cfg:       cfg,
		producer:  producer,
		postTopic: cfg.RequestTopic,
		readTopic: cfg.ResponseTopic,
		groupID:   cfg.GroupID + "-" + source,
		fromEnd:   true,
	}
}

// NewKafkaServerTransport is the serving side: it reads requests and posts
// responses.
func NewKafkaServerTransport(cfg kafka_client.KafkaConfig, producer *kafka.Producer) *KafkaTransport {
	return &KafkaTransport{
		cfg:       cfg,
		producer:  producer,
		postTopic: cfg.ResponseTopic,
		readTopic: cfg.RequestTopic,
		groupID:   cfg.GroupID,
	}
}

func (t *KafkaTransport) Post(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("[KafkaTransport] failed to marshal message: %w", err)
	}
	return kafka_client.Publish(ctx, t.producer, t.postTopic, []byte(msg.Source), value)
}

// Subscribe returns once the consumer holds its partitions, so nothing posted
// after it returns can be missed.
func (t *KafkaTransport) Subscribe(ctx context.Context, fn func(Message)) error {
	assigned := make(chan struct{})
	var once sync.Once
	ready := func() { once.Do(func() { close(assigned) }) }

	consumer, err := kafka_client.NewConsumer(t.cfg, t.groupID, kafka_client.OnAssigned(t.fromEnd, ready), t.readTopic)
	if err != nil {
		return err
	}

	readCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		defer func() {
			if err := consumer.Close(); err != nil {
				slog.Warn("[KafkaTransport] Failed to close consumer",
					slog.String("error", err.Error()))
			}
		}()

		consume(kafka_client.NewKafkaMessageIterator(readCtx, consumer),
			kafka_client.NewCommitHandler(readCtx, consumer), t.readTopic, fn)
	}()

	timer := time.NewTimer(kafka_client.ASSIGN_TIMEOUT)
	defer timer.Stop()

	select {
	case <-assigned:
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	case <-timer.C:
		cancel()
		return fmt.Errorf("[KafkaTransport] no partitions of %s assigned within %s", t.readTopic, kafka_client.ASSIGN_TIMEOUT)
	}
}

type messageSource interface {
	Next() (*kafka.Message, error)
}

type offsetCommitter interface {
	Commit(msg *kafka.Message) error
}

// consume decodes and delivers every message from src until it fails.
// Malformed messages are committed too so they are not read again.
func consume(src messageSource, committer offsetCommitter, topic string, fn func(Message)) {
	for {
		km, err := src.Next()
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				slog.Error("[KafkaTransport] Stopped reading",
					slog.String("topic", topic),
					slog.String("error", err.Error()))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(km.Value, &msg); err != nil {
			slog.Warn("[KafkaTransport] Dropping malformed message",
				slog.String("topic", topic),
				slog.String("error", err.Error()))
		} else {
			deliver(fn, msg)
		}

		if err := committer.Commit(km); err != nil {
			slog.Warn("[KafkaTransport] Failed to commit offset",
				slog.String("error", err.Error()))
		}
	}
}
