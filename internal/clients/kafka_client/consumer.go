package kafka_client

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// NewConsumer joins groupID on topics. rebalance, when set, sees every
// assignment and revocation while the consumer is polled.
func NewConsumer(cfg KafkaConfig, groupID string, rebalance kafka.RebalanceCb, topics ...string) (*kafka.Consumer, error) {
	slog.Info("[KafkaClient] Initializing Kafka Consumer...",
		slog.String("broker", cfg.Broker),
		slog.String("group_id", groupID),
		slog.String("topics", strings.Join(topics, ", ")))

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Broker,
		"group.id":           groupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": false,
		"isolation.level":    "read_committed",
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create consumer: %w", err)
	}

	if err := c.SubscribeTopics(topics, rebalance); err != nil {
		c.Close()
		return nil, fmt.Errorf("[KafkaClient] Failed to subscribe to topics: %w", err)
	}

	slog.Info("[KafkaClient] Kafka Consumer initialized successfully")
	return c, nil
}

// OnAssigned returns a rebalance callback that applies every assignment and
// then calls ready. With fromEnd set each partition starts at its current high
// watermark, so a fresh group reads exactly what is produced after the
// assignment instead of racing the offset reset.
func OnAssigned(fromEnd bool, ready func()) kafka.RebalanceCb {
	return func(c *kafka.Consumer, ev kafka.Event) error {
		switch e := ev.(type) {
		case kafka.AssignedPartitions:
			parts := e.Partitions
			if fromEnd {
				parts = atHighWatermark(c, parts)
			}
			if err := c.Assign(parts); err != nil {
				slog.Error("[KafkaClient] Failed to assign partitions",
					slog.String("error", err.Error()))
				return err
			}
			slog.Info("[KafkaClient] Partitions assigned",
				slog.Int("partitions", len(parts)),
				slog.Bool("from_end", fromEnd))
			if ready != nil {
				ready()
			}

		case kafka.RevokedPartitions:
			slog.Info("[KafkaClient] Partitions revoked",
				slog.Int("partitions", len(e.Partitions)))
			return c.Unassign()
		}
		return nil
	}
}

func atHighWatermark(c *kafka.Consumer, parts []kafka.TopicPartition) []kafka.TopicPartition {
	out := make([]kafka.TopicPartition, len(parts))
	for i, p := range parts {
		out[i] = p
		if p.Topic == nil {
			continue
		}
		_, high, err := c.QueryWatermarkOffsets(*p.Topic, p.Partition, WATERMARK_TIMEOUT_MS)
		if err != nil {
			slog.Warn("[KafkaClient] Failed to query high watermark, falling back to offset reset",
				slog.String("topic", *p.Topic),
				slog.Int("partition", int(p.Partition)),
				slog.String("error", err.Error()))
			continue
		}
		out[i].Offset = kafka.Offset(high)
	}
	return out
}
