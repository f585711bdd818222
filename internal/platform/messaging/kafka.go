package messaging

import (
	"context"
	"log/slog"
	"sync"

	contractsv1 "ballotbox/contracts/gen/events/v1"
)

const groupBuffer = 128

type partitionKey struct {
	topic string
	key   string
}

// Kafka is the event bus of the worker process. Topics are delivered
// in-process with consumer group semantics: every group receives each event
// once, and subscribers sharing a group compete for it. The newest event per
// topic and partition key is retained, like a compacted topic.
type Kafka struct {
	mu      sync.RWMutex
	brokers []string
	groups  map[string]map[string]chan contractsv1.Envelope
	latest  map[partitionKey]contractsv1.Envelope
	logger  *slog.Logger
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{
		brokers: append([]string(nil), brokers...),
		groups:  make(map[string]map[string]chan contractsv1.Envelope),
		latest:  make(map[partitionKey]contractsv1.Envelope),
		logger:  logger,
	}, nil
}

// Brokers returns the configured broker addresses.
func (k *Kafka) Brokers() []string {
	return append([]string(nil), k.brokers...)
}

// Publish records event as the newest for its partition key and hands it to
// one subscriber of every consumer group on topic. A group whose buffer is
// full misses the event.
func (k *Kafka) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	k.mu.Lock()
	k.latest[partitionKey{topic: topic, key: event.PartitionKey}] = event
	groups := make(map[string]chan contractsv1.Envelope, len(k.groups[topic]))
	for group, ch := range k.groups[topic] {
		groups[group] = ch
	}
	k.mu.Unlock()

	for group, ch := range groups {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch <- event:
		default:
			k.logger.Warn("dropping event for saturated consumer group",
				"event", "kafka_publish_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"consumer_group", group,
				"event_id", event.EventID,
			)
		}
	}

	k.logger.Debug("event published",
		"event", "kafka_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
		"consumer_groups", len(groups),
	)
	return nil
}

// Latest returns the newest event published on topic under partition key.
func (k *Kafka) Latest(topic string, key string) (contractsv1.Envelope, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	event, ok := k.latest[partitionKey{topic: topic, key: key}]
	return event, ok
}

// Subscribe runs handler for events of topic delivered to consumerGroup
// until ctx is done. Each subscription handles its events in publish order.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	k.mu.Lock()
	if k.groups[topic] == nil {
		k.groups[topic] = make(map[string]chan contractsv1.Envelope)
	}
	ch, ok := k.groups[topic][consumerGroup]
	if !ok {
		ch = make(chan contractsv1.Envelope, groupBuffer)
		k.groups[topic][consumerGroup] = ch
	}
	k.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil {
					k.logger.Error("consumer handler failed",
						"event", "kafka_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}
