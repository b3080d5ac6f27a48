package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"landClaim/internal/model"
)

func TestJsonlStorageAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.jsonl")
	store := NewJsonlStorage(path)

	first := []model.LogRecord{
		{ChainID: 1, BlockNumber: 1, LogIndex: 0, TxHash: "0x01", Topics: []string{"0xaa"}, Data: "0x"},
	}
	second := []model.LogRecord{
		{ChainID: 1, BlockNumber: 2, LogIndex: 0, TxHash: "0x02", Topics: []string{"0xbb"}, Data: "0x"},
		{ChainID: 1, BlockNumber: 2, LogIndex: 1, TxHash: "0x02", Topics: []string{"0xcc"}, Data: "0x"},
	}

	ctx := context.Background()
	if err := store.PutLogBatch(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.PutLogBatch(ctx, nil); err != nil {
		t.Fatalf("unexpected error on empty batch: %v", err)
	}
	if err := store.PutLogBatch(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []model.LogRecord
	if err := ReadLogs(path, func(r model.LogRecord) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatalf("read logs: %v", err)
	}

	want := append(append([]model.LogRecord{}, first...), second...)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("records mismatch: %+v != %+v", got, want)
	}
}

func TestReadLogsMissingFile(t *testing.T) {
	calls := 0
	err := ReadLogs(filepath.Join(t.TempDir(), "absent.jsonl"), func(model.LogRecord) error {
		calls++
		return nil
	})
	if err != nil || calls != 0 {
		t.Fatalf("expected empty journal, got err=%v calls=%d", err, calls)
	}
}

func TestReadLogsStopsOnCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	data := "{\"block_number\":1}\n\n{\"block_number\":2}\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	stop := errors.New("stop")
	calls := 0
	err := ReadLogs(path, func(model.LogRecord) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("expected stop after first record, got err=%v calls=%d", err, calls)
	}
}

func TestReadLogsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	if err := os.WriteFile(path, []byte("{\"block_number\":1}\nnot-json\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ReadLogs(path, func(model.LogRecord) error { return nil }); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestJsonlStorageCanceledContext(t *testing.T) {
	store := NewJsonlStorage(filepath.Join(t.TempDir(), "journal.jsonl"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.PutLogBatch(ctx, []model.LogRecord{{BlockNumber: 1}}); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}
