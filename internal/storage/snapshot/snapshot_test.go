package snapshot

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"landClaim/internal/model"
	"landClaim/internal/registry"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "registry.snap.zst")

	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")
	pos := model.Position{Block: 9, LogIndex: 2}
	snap := registry.Snapshot{
		Position:     &pos,
		TradeCounter: 2,
		Holdings: []registry.Holding{
			{Owner: alice, Lands: []model.LandID{"apple.banana.cherry", "index.home.raft"}},
			{Owner: bob, Lands: []model.LandID{"filled.count.soap"}},
		},
		Trades: []model.Trade{
			{ID: 1, Proposer: alice, OfferedLand: "apple.banana.cherry", RequestedLand: "filled.count.soap", IsActive: true},
			{ID: 2, Proposer: bob, OfferedLand: "filled.count.soap", RequestedLand: "index.home.raft"},
		},
	}

	if err := Save(path, 80002, "0x9999999999999999999999999999999999999999", snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file should be gone: %v", err)
	}

	doc, ok, err := Load(path)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if doc.ChainID != 80002 || doc.Version != currentVersion {
		t.Fatalf("header mismatch: %+v", doc)
	}
	if !reflect.DeepEqual(doc.Registry, snap) {
		t.Fatalf("snapshot mismatch: %+v != %+v", doc.Registry, snap)
	}
}

func TestLoadMissing(t *testing.T) {
	_, ok, err := Load(filepath.Join(t.TempDir(), "none.zst"))
	if err != nil || ok {
		t.Fatalf("expected missing snapshot, got ok=%v err=%v", ok, err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zst")
	if err := os.WriteFile(path, []byte("not zstd"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := Load(path); err == nil {
		t.Fatalf("expected error for corrupt snapshot")
	}
}
