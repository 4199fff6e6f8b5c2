// Package kafka provides a Kafka-backed audit sink. Events are produced as
// JSON records keyed by tenant so per-tenant ordering is preserved within a
// partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "skdm/pkg/platform/audit"
)

// Store produces audit events to a Kafka topic.
type Store struct {
	client *kgo.Client
	topic  string
}

// New connects to the given brokers and ensures the audit topic exists.
func New(ctx context.Context, brokers []string, topic string) (*Store, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	// CreateTopics is idempotent for our purposes: "already exists" responses
	// are ignored.
	if _, err := adm.CreateTopics(ctx, 3, 1, nil, topic); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %q: %w", topic, err)
	}

	return &Store{client: client, topic: topic}, nil
}

// Append produces one event synchronously. Compliance callers rely on the
// synchronous acknowledgement for fail-closed semantics.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.TenantID.String()),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying client.
func (s *Store) Close() {
	s.client.Close()
}
