package storage

import (
	"context"
	"fmt"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// DefaultMaxHistory caps the metrics history when no limit is configured.
const DefaultMaxHistory = 1000

// HistoryStore persists a metrics history snapshot. Load returns an empty
// history, not an error, when the snapshot is absent or unreadable; errors
// are reserved for an unreachable backend.
type HistoryStore interface {
	Load(ctx context.Context) ([]models.MetricSample, error)
	Save(ctx context.Context, samples []models.MetricSample) error
	Close() error
}

// History is a bounded, insertion-ordered sequence of metric samples. When
// full, appending evicts the oldest sample. A History has a single writer.
type History struct {
	max     int
	samples []models.MetricSample
}

// NewHistory returns an empty History holding at most max samples. A
// non-positive max selects DefaultMaxHistory.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &History{max: max}
}

// LoadHistory reads store into a new History, keeping the newest max samples.
func LoadHistory(ctx context.Context, store HistoryStore, max int) (*History, error) {
	samples, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	h := NewHistory(max)
	h.Reset(samples)
	return h, nil
}

// Append adds sample at the tail and returns how many samples were evicted.
func (h *History) Append(sample models.MetricSample) int {
	h.samples = append(h.samples, sample)
	return h.trim()
}

// Reset replaces the contents with samples, keeping the newest max.
func (h *History) Reset(samples []models.MetricSample) {
	h.samples = append([]models.MetricSample(nil), samples...)
	h.trim()
}

// Samples returns a copy of the history, oldest first.
func (h *History) Samples() []models.MetricSample {
	return append([]models.MetricSample(nil), h.samples...)
}

// Len returns the number of samples held.
func (h *History) Len() int { return len(h.samples) }

// Max returns the capacity.
func (h *History) Max() int { return h.max }

// Latest returns the newest sample.
func (h *History) Latest() (models.MetricSample, bool) {
	if len(h.samples) == 0 {
		return models.MetricSample{}, false
	}
	return h.samples[len(h.samples)-1], true
}

// Save writes the full history to store.
func (h *History) Save(ctx context.Context, store HistoryStore) error {
	if err := store.Save(ctx, h.samples); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

func (h *History) trim() int {
	over := len(h.samples) - h.max
	if over <= 0 {
		return 0
	}
	// Copy so evicted samples do not pin the old backing array.
	h.samples = append([]models.MetricSample(nil), h.samples[over:]...)
	return over
}
