package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/divyansh-cyber/AceE6data/internal/logging"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

func sampleAt(i int) models.MetricSample {
	return models.NewMetricSample(
		time.Unix(1700000000+int64(i), 0).UTC(),
		map[string]float64{"Questions": float64(i), "Threads_connected": 3},
	)
}

func TestHistory_AppendEvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 3; i++ {
		if evicted := h.Append(sampleAt(i)); evicted != 0 {
			t.Fatalf("Append(%d) evicted %d", i, evicted)
		}
	}
	if evicted := h.Append(sampleAt(3)); evicted != 1 {
		t.Errorf("Append over cap evicted %d, want 1", evicted)
	}

	got := h.Samples()
	if len(got) != 3 {
		t.Fatalf("Len = %d, want 3", len(got))
	}
	for i, s := range got {
		if want := float64(i + 1); s.Values["Questions"] != want {
			t.Errorf("sample %d Questions = %v, want %v", i, s.Values["Questions"], want)
		}
	}
	latest, ok := h.Latest()
	if !ok || latest.Values["Questions"] != 3 {
		t.Errorf("Latest = %+v, %v", latest, ok)
	}
}

func TestHistory_DefaultCap(t *testing.T) {
	h := NewHistory(0)
	if h.Max() != DefaultMaxHistory {
		t.Errorf("Max() = %d, want %d", h.Max(), DefaultMaxHistory)
	}
	for i := 0; i < DefaultMaxHistory+5; i++ {
		h.Append(sampleAt(i))
	}
	if h.Len() != DefaultMaxHistory {
		t.Errorf("Len() = %d, want %d", h.Len(), DefaultMaxHistory)
	}
	first := h.Samples()[0]
	if first.Values["Questions"] != 5 {
		t.Errorf("oldest Questions = %v, want 5", first.Values["Questions"])
	}
}

func TestHistory_SamplesIsCopy(t *testing.T) {
	h := NewHistory(10)
	h.Append(sampleAt(0))
	s := h.Samples()
	s[0] = sampleAt(99)
	if h.Samples()[0].Values["Questions"] != 0 {
		t.Error("mutating Samples() result changed the history")
	}
}

func TestFileHistoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "metrics_history.json")
	store := NewFileHistoryStore(path, 1000, logging.Discard())

	h := NewHistory(1000)
	for i := 0; i < 4; i++ {
		h.Append(sampleAt(i))
	}
	if err := h.Save(ctx, store); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadHistory(ctx, store, 1000)
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if loaded.Len() != 4 {
		t.Fatalf("loaded %d samples, want 4", loaded.Len())
	}
	for i, s := range loaded.Samples() {
		want := sampleAt(i)
		if !s.Timestamp.Equal(want.Timestamp) || s.Values["Questions"] != want.Values["Questions"] {
			t.Errorf("sample %d = %+v, want %+v", i, s, want)
		}
	}
}

func TestFileHistoryStore_SaveCaps(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "h.json")
	store := NewFileHistoryStore(path, 2, logging.Discard())

	if err := store.Save(ctx, []models.MetricSample{sampleAt(0), sampleAt(1), sampleAt(2)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].Values["Questions"] != 1 {
		t.Errorf("Load = %+v, want samples 1 and 2", got)
	}
}

func TestFileHistoryStore_RecoverableLoads(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"legacy array", `[{"Questions": 1, "timestamp": 1700000000.25}, {"Questions": 2, "timestamp": 1700000060}]`, 2},
		{"corrupt", `{"schema_version": 1, "samples": [`, 0},
		{"unknown version", `{"schema_version": 99, "samples": [{"Questions": 1}]}`, 0},
		{"empty file", ``, 0},
		{"string value", `[{"Questions": "lots"}]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "h.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("writing fixture: %v", err)
			}
			got, err := NewFileHistoryStore(path, 0, logging.Discard()).Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Load returned %d samples, want %d", len(got), tt.want)
			}
		})
	}
}

func TestFileHistoryStore_MissingFile(t *testing.T) {
	store := NewFileHistoryStore(filepath.Join(t.TempDir(), "absent.json"), 0, logging.Discard())
	got, err := store.Load(context.Background())
	if err != nil || len(got) != 0 {
		t.Errorf("Load = %v, %v; want empty, nil", got, err)
	}
}

func TestFileHistoryStore_LegacyTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.json")
	if err := os.WriteFile(path, []byte(`[{"Questions": 1, "timestamp": 1700000000.5}]`), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	got, err := NewFileHistoryStore(path, 0, logging.Discard()).Load(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("Load = %v, %v", got, err)
	}
	want := time.Unix(1700000000, 500_000_000).UTC()
	if !got[0].Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", got[0].Timestamp, want)
	}
	if _, ok := got[0].Values["timestamp"]; ok {
		t.Error("timestamp leaked into Values")
	}
}
