package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileCheckpoint(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	cp := NewFileCheckpoint(path)

	if _, ok, err := cp.Load(ctx); err != nil || ok {
		t.Fatalf("expected missing checkpoint, got ok=%v err=%v", ok, err)
	}

	if err := cp.Save(ctx, 1234); err != nil {
		t.Fatalf("save: %v", err)
	}
	block, ok, err := cp.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if block != 1234 {
		t.Fatalf("expected 1234, got %d", block)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestFileCheckpointCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := NewFileCheckpoint(path).Load(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

type memoryStateStore struct {
	blocks map[string]uint64
}

func (m *memoryStateStore) LoadState(_ context.Context, name string) (uint64, bool, error) {
	block, ok := m.blocks[name]
	return block, ok, nil
}

func (m *memoryStateStore) SaveState(_ context.Context, name string, block uint64) error {
	m.blocks[name] = block
	return nil
}

func TestDBCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := &memoryStateStore{blocks: map[string]uint64{}}
	cp := NewDBCheckpoint(store, "landclaim:80002")

	if _, ok, _ := cp.Load(ctx); ok {
		t.Fatalf("expected empty checkpoint")
	}
	if err := cp.Save(ctx, 42); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.blocks["landclaim:80002"] != 42 {
		t.Fatalf("state not stored under name: %+v", store.blocks)
	}
	block, ok, err := cp.Load(ctx)
	if err != nil || !ok || block != 42 {
		t.Fatalf("load mismatch: %d %v %v", block, ok, err)
	}
}
