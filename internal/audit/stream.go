package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// StreamPublisher ships audit entries to a Kafka topic so downstream
// consumers (notification fan-out, compliance export) see decisions without
// polling the database.
type StreamPublisher struct {
	client *kgo.Client
	topic  string
}

// streamRecord is the wire shape of a streamed entry. Field names match the
// HTTP API's JSON casing.
type streamRecord struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"requestId"`
	SitterID   string    `json:"sitterId"`
	ReviewerID string    `json:"reviewerId"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewStreamPublisher connects to the brokers and ensures the topic exists.
// Returns nil when no brokers are configured; a nil *StreamPublisher is a
// valid no-op publisher.
func NewStreamPublisher(ctx context.Context, brokers []string, topic string) (*StreamPublisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordRetries(5),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	topics, err := admin.ListTopics(ctx, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka list topics: %w", err)
	}
	if !topics.Has(topic) {
		if _, err := admin.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
			client.Close()
			return nil, fmt.Errorf("kafka create topic %q: %w", topic, err)
		}
	}

	return &StreamPublisher{client: client, topic: topic}, nil
}

// Publish produces one entry, keyed by sitter so a sitter's decisions stay
// ordered within a partition.
func (p *StreamPublisher) Publish(ctx context.Context, entry Entry) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(streamRecord{
		ID:         entry.ID.String(),
		RequestID:  entry.RequestID.String(),
		SitterID:   entry.SitterID.String(),
		ReviewerID: entry.ReviewerID.String(),
		Outcome:    string(entry.Outcome),
		Reason:     entry.Reason,
		Timestamp:  entry.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(entry.SitterID.String()),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

func (p *StreamPublisher) Close() {
	if p == nil {
		return
	}
	p.client.Close()
}
