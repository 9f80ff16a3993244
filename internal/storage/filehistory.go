package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// FileHistoryStore keeps the history snapshot in a JSON file:
//
//	{"schema_version": 1, "samples": [{"Questions": 12, "timestamp": 1700000000.5}, ...]}
//
// A bare JSON array of samples, as written by earlier releases, is also
// accepted on load.
type FileHistoryStore struct {
	path   string
	max    int
	logger *slog.Logger
}

// NewFileHistoryStore creates a store at path that saves at most max samples.
func NewFileHistoryStore(path string, max int, logger *slog.Logger) *FileHistoryStore {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileHistoryStore{path: path, max: max, logger: logger}
}

// Path returns the snapshot file location.
func (s *FileHistoryStore) Path() string { return s.path }

// Location names the snapshot file for messages.
func (s *FileHistoryStore) Location() string { return s.path }

// Load reads the snapshot. A missing, unreadable, corrupt or unknown-version
// file yields an empty history and a warning.
func (s *FileHistoryStore) Load(_ context.Context) ([]models.MetricSample, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("history snapshot unreadable, starting empty", "path", s.path, "error", err)
		}
		return nil, nil
	}

	samples, err := decodeHistory(data)
	if err != nil {
		s.logger.Warn("history snapshot invalid, starting empty", "path", s.path, "error", err)
		return nil, nil
	}
	return samples, nil
}

// Save overwrites the snapshot with the newest max samples.
func (s *FileHistoryStore) Save(_ context.Context, samples []models.MetricSample) error {
	if len(samples) > s.max {
		samples = samples[len(samples)-s.max:]
	}
	if samples == nil {
		samples = []models.MetricSample{}
	}

	data, err := json.MarshalIndent(models.HistorySnapshot{
		SchemaVersion: models.SnapshotSchemaVersion,
		Samples:       samples,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("saving history: marshaling JSON: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("saving history: creating directory: %w", err)
	}
	unlock, err := lockFile(s.path + ".lock")
	if err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	defer func() { _ = unlock() }()

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *FileHistoryStore) Close() error { return nil }

// decodeHistory parses either snapshot form.
func decodeHistory(data []byte) ([]models.MetricSample, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	if trimmed[0] == '[' {
		var samples []models.MetricSample
		if err := json.Unmarshal(trimmed, &samples); err != nil {
			return nil, fmt.Errorf("parsing legacy history: %w", err)
		}
		return samples, nil
	}

	var snap models.HistorySnapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, fmt.Errorf("parsing history: %w", err)
	}
	if snap.SchemaVersion != models.SnapshotSchemaVersion {
		return nil, fmt.Errorf("unsupported schema_version %d", snap.SchemaVersion)
	}
	return snap.Samples, nil
}
