package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"landClaim/internal/registry"
)

const currentVersion = 1

// File is the on-disk snapshot: a zstd-compressed JSON document.
type File struct {
	Version  int               `json:"version"`
	ChainID  uint64            `json:"chain_id"`
	Contract string            `json:"contract"`
	SavedAt  string            `json:"saved_at"`
	Registry registry.Snapshot `json:"registry"`
}

// Save writes snap to path atomically (tmp file + rename).
func Save(path string, chainID uint64, contract string, snap registry.Snapshot) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot tmp: %w", err)
	}
	defer os.Remove(tmp)

	bw := bufio.NewWriter(f)
	enc, err := zstd.NewWriter(bw)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("zstd writer: %w", err)
	}

	doc := File{
		Version:  currentVersion,
		ChainID:  chainID,
		Contract: contract,
		SavedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Registry: snap,
	}
	if err := json.NewEncoder(enc).Encode(doc); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("close zstd: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot. A missing file reports ok=false with no error.
func Load(path string) (File, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return File{}, false, nil
		}
		return File{}, false, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(bufio.NewReader(f))
	if err != nil {
		return File{}, false, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	var doc File
	if err := json.NewDecoder(dec).Decode(&doc); err != nil {
		return File{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version != currentVersion {
		return File{}, false, fmt.Errorf("unsupported snapshot version %d", doc.Version)
	}
	return doc, true, nil
}
