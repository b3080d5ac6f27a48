package kafka

import (
	"encoding/json"
	"reflect"
	"testing"

	"landClaim/internal/model"
)

func TestBuildRecords(t *testing.T) {
	logs := []model.LogRecord{
		{ChainID: 1, BlockNumber: 5, LogIndex: 0, Address: "0x9999999999999999999999999999999999999999", Topics: []string{"0xaa"}, Data: "0x"},
		{ChainID: 1, BlockNumber: 5, LogIndex: 1, Address: "0x9999999999999999999999999999999999999999", Topics: []string{"0xbb"}, Data: "0x"},
	}

	records, err := BuildRecords("land-events", logs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	for i, record := range records {
		if record.Topic != "land-events" {
			t.Fatalf("topic mismatch: %s", record.Topic)
		}
		if string(record.Key) != logs[i].Address {
			t.Fatalf("key mismatch: %s", record.Key)
		}
		var decoded model.LogRecord
		if err := json.Unmarshal(record.Value, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !reflect.DeepEqual(decoded, logs[i]) {
			t.Fatalf("value mismatch: %+v != %+v", decoded, logs[i])
		}
		if string(record.Headers[1].Value) != []string{"0", "1"}[i] {
			t.Fatalf("log index header mismatch: %s", record.Headers[1].Value)
		}
	}
}

func TestNewPublisherValidation(t *testing.T) {
	if _, err := NewPublisher(nil, "topic"); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewPublisher([]string{"localhost:9092"}, ""); err == nil {
		t.Fatalf("expected error without topic")
	}
}
