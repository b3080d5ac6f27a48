package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"landClaim/internal/model"
)

// Publisher produces committed event records to a Kafka topic so observers
// can follow registry changes without polling.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// NewPublisher connects to brokers and produces to topic.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

func (p *Publisher) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

// PutLogBatch produces one message per record and waits for acknowledgement.
func (p *Publisher) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}
	records, err := BuildRecords(p.topic, logs)
	if err != nil {
		return err
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce events: %w", err)
	}
	return nil
}

// BuildRecords maps log records to Kafka records keyed by contract address,
// which keeps one contract's events ordered within a partition.
func BuildRecords(topic string, logs []model.LogRecord) ([]*kgo.Record, error) {
	out := make([]*kgo.Record, 0, len(logs))
	for _, record := range logs {
		value, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("marshal log record: %w", err)
		}
		out = append(out, &kgo.Record{
			Topic: topic,
			Key:   []byte(record.Address),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "block_number", Value: []byte(strconv.FormatUint(record.BlockNumber, 10))},
				{Key: "log_index", Value: []byte(strconv.FormatUint(record.LogIndex, 10))},
			},
		})
	}
	return out, nil
}
