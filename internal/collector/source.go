// Package collector produces metric samples from a MySQL server's global
// status, or from synthetic demo data when no server is reachable.
package collector

import (
	"context"
	"log/slog"
	"sync"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// Source names.
const (
	SourceMySQL = "mysql"
	SourceDemo  = "demo"
)

// Source yields one metric sample per call.
type Source interface {
	Name() string
	Collect(ctx context.Context) (models.MetricSample, error)
}

// FallbackSource reads from a primary source and switches to the fallback
// for good once the primary fails.
type FallbackSource struct {
	primary  Source
	fallback Source
	logger   *slog.Logger

	mu       sync.Mutex
	degraded bool
	last     string
}

// NewFallbackSource returns a source that prefers primary.
func NewFallbackSource(primary, fallback Source, logger *slog.Logger) *FallbackSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackSource{primary: primary, fallback: fallback, logger: logger}
}

// Name returns the name of the source currently in use.
func (f *FallbackSource) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.degraded {
		return f.fallback.Name()
	}
	return f.primary.Name()
}

// LastUsed returns the name of the source that produced the last sample.
func (f *FallbackSource) LastUsed() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Degraded reports whether the primary has failed.
func (f *FallbackSource) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.degraded
}

// Collect implements Source.
func (f *FallbackSource) Collect(ctx context.Context) (models.MetricSample, error) {
	f.mu.Lock()
	degraded := f.degraded
	f.mu.Unlock()

	if !degraded {
		sample, err := f.primary.Collect(ctx)
		if err == nil {
			f.setLast(f.primary.Name())
			return sample, nil
		}
		if ctx.Err() != nil {
			return models.MetricSample{}, ctx.Err()
		}
		f.logger.Warn("primary metric source unavailable, switching to fallback",
			"primary", f.primary.Name(), "fallback", f.fallback.Name(), "error", err)
		f.mu.Lock()
		f.degraded = true
		f.mu.Unlock()
	}

	sample, err := f.fallback.Collect(ctx)
	if err != nil {
		return models.MetricSample{}, err
	}
	f.setLast(f.fallback.Name())
	return sample, nil
}

func (f *FallbackSource) setLast(name string) {
	f.mu.Lock()
	f.last = name
	f.mu.Unlock()
}

// SourceName returns the name of the source that produced the last sample
// when src tracks it, and src.Name() otherwise.
func SourceName(src Source) string {
	if f, ok := src.(*FallbackSource); ok {
		if last := f.LastUsed(); last != "" {
			return last
		}
	}
	return src.Name()
}
