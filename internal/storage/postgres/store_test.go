package postgres

import (
	"context"
	"strings"
	"testing"
)

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), "", 80002, "0x9999999999999999999999999999999999999999"); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestSchemaTables(t *testing.T) {
	for _, table := range []string{"land_events", "lands", "trades", "indexer_state"} {
		if !strings.Contains(Schema, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Fatalf("schema missing table %s", table)
		}
	}
}
