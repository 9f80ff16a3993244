package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// ErrNoAnalysis is returned by AnalysisStore.Load before any run was saved.
var ErrNoAnalysis = errors.New("no recent analysis")

// AnalysisStore persists the recent-analysis context snapshot.
type AnalysisStore struct {
	path string
}

// NewAnalysisStore creates a store writing to path.
func NewAnalysisStore(path string) *AnalysisStore {
	return &AnalysisStore{path: path}
}

// Path returns the snapshot file location.
func (s *AnalysisStore) Path() string { return s.path }

// Save overwrites the snapshot. The schema version is always set and a nil
// query list is written as an empty array.
func (s *AnalysisStore) Save(ra models.RecentAnalysis) error {
	ra.SchemaVersion = models.SnapshotSchemaVersion
	if ra.Queries == nil {
		ra.Queries = []models.RecentQuery{}
	}
	data, err := json.MarshalIndent(ra, "", "  ")
	if err != nil {
		return fmt.Errorf("saving analysis: marshaling JSON: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("saving analysis: creating directory: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("saving analysis: %w", err)
	}
	return nil
}

// Load reads the snapshot. It returns ErrNoAnalysis when none exists and an
// error for a corrupt file or unknown schema version.
func (s *AnalysisStore) Load() (*models.RecentAnalysis, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoAnalysis
		}
		return nil, fmt.Errorf("loading analysis: %w", err)
	}
	var ra models.RecentAnalysis
	if err := json.Unmarshal(data, &ra); err != nil {
		return nil, fmt.Errorf("loading analysis: parsing JSON: %w", err)
	}
	if ra.SchemaVersion != models.SnapshotSchemaVersion {
		return nil, fmt.Errorf("loading analysis: unsupported schema_version %d", ra.SchemaVersion)
	}
	return &ra, nil
}
