package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Topic is the attendance event stream consumed by the surrounding SaaS.
const Topic = "gymgate.attendance.events"

// KafkaPublisher produces attendance events to Kafka. Events for one
// organization share a partition key so consumers observe them in order.
type KafkaPublisher struct {
	client *kgo.Client
}

// NewKafkaPublisher connects a producer to the given brokers.
func NewKafkaPublisher(brokers []string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client}, nil
}

// EnsureTopic creates the event topic when it does not exist yet.
func (p *KafkaPublisher) EnsureTopic(ctx context.Context, partitions int32) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopic(ctx, partitions, 1, nil, Topic)
	if err != nil {
		return fmt.Errorf("ensure topic %s: %w", Topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("ensure topic %s: %w", Topic, resp.Err)
	}
	return nil
}

func (p *KafkaPublisher) Emit(ctx context.Context, event Event) error {
	payload, err := json.Marshal(wireEvent{
		Event:     event,
		OrgID:     event.OrgID.String(),
		SubjectID: event.SubjectID.String(),
	})
	if err != nil {
		return fmt.Errorf("marshal attendance event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.OrgID.String()),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce attendance event: %w", err)
	}
	return nil
}

// Close flushes and releases the producer.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
