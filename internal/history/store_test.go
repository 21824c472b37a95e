package history_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/guardiansim/ges-core/internal/history"
	"github.com/guardiansim/ges-core/internal/infrastructure/config"
	_ "github.com/guardiansim/ges-core/migrations" // registers the embedded schema
)

func openStore(t *testing.T) *history.Store {
	t.Helper()

	cfg := config.HistoryConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	}

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return store
}

func TestOpen_CreatesDirectoryAndFile(t *testing.T) {
	cfg := config.HistoryConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "nested", "dir", "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	}

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	if got := store.Path(); got != cfg.Path {
		t.Errorf("Path() = %q, want %q", got, cfg.Path)
	}
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := openStore(t)

	// A second run must find everything applied and change nothing.
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestRecordPacket_RoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	payload := []byte(`{"command":"spawn","type":"valve","count":1}`)
	if err := store.RecordPacket(ctx, "127.0.0.1:45678", payload, ""); err != nil {
		t.Fatalf("RecordPacket() error = %v", err)
	}
	if err := store.RecordPacket(ctx, "127.0.0.1:45678", []byte("not json"), "control: malformed payload"); err != nil {
		t.Fatalf("RecordPacket() error = %v", err)
	}

	records, err := store.Packets(ctx, 10)
	if err != nil {
		t.Fatalf("Packets() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Packets() returned %d records, want 2", len(records))
	}

	// Newest first.
	if records[0].ParseError != "control: malformed payload" {
		t.Errorf("ParseError = %q, want parse failure", records[0].ParseError)
	}
	if records[1].Payload != string(payload) {
		t.Errorf("Payload = %q, want %q", records[1].Payload, payload)
	}
	if records[1].Size != len(payload) {
		t.Errorf("Size = %d, want %d", records[1].Size, len(payload))
	}
	if records[1].Sender != "127.0.0.1:45678" {
		t.Errorf("Sender = %q", records[1].Sender)
	}
	if records[1].ReceivedAt.IsZero() {
		t.Error("ReceivedAt is zero")
	}
}

func TestRecordEvent_RoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	detail := map[string]any{"codename": "tiddymun", "count": float64(2)}
	if err := store.RecordEvent(ctx, "spawn", "Device-93BC", detail); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}
	if err := store.RecordEvent(ctx, "protocol_error", "", nil); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	spawns, err := store.Events(ctx, "spawn", 10)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(spawns) != 1 {
		t.Fatalf("Events(spawn) returned %d records, want 1", len(spawns))
	}
	if spawns[0].Instance != "Device-93BC" {
		t.Errorf("Instance = %q, want Device-93BC", spawns[0].Instance)
	}
	if spawns[0].Detail["codename"] != "tiddymun" {
		t.Errorf("Detail = %v, want codename tiddymun", spawns[0].Detail)
	}

	all, err := store.Events(ctx, "", 10)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Events(all) returned %d records, want 2", len(all))
	}
}
