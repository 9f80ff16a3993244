package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/divyansh-cyber/AceE6data/internal/anomaly"
	"github.com/divyansh-cyber/AceE6data/internal/collector"
	"github.com/divyansh-cyber/AceE6data/internal/observability"
	"github.com/divyansh-cyber/AceE6data/internal/storage"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// CollectResult describes one collected and persisted sample.
type CollectResult struct {
	Sample      models.MetricSample `json:"sample"`
	Source      string              `json:"source"`
	HistorySize int                 `json:"history_size"`
	Evicted     int                 `json:"evicted"`
}

// AnomalyReport is the outcome of checking one sample. When Ready is false
// the detector lacked training data and Verdict is zero.
type AnomalyReport struct {
	Sample    models.MetricSample `json:"sample"`
	Ready     bool                `json:"ready"`
	Available int                 `json:"available"`
	Required  int                 `json:"required"`
	TrainedOn int                 `json:"trained_on,omitempty"`
	Verdict   anomaly.Verdict     `json:"verdict"`
}

// Missing returns how many more samples training needs.
func (r AnomalyReport) Missing() int {
	if r.Available >= r.Required {
		return 0
	}
	return r.Required - r.Available
}

// MetricsMonitor collects samples into the history and checks them against
// a detector trained on that history.
type MetricsMonitor interface {
	Collect(ctx context.Context) (*CollectResult, error)
	Analyze(ctx context.Context) (*AnomalyReport, error)
	Check(ctx context.Context, sample models.MetricSample) (*AnomalyReport, error)
	Score(ctx context.Context, sample models.MetricSample) (*AnomalyReport, error)
	History() []models.MetricSample
	Latest() (models.MetricSample, bool)
	Features() []string
	MinSamples() int
}

// sampleAppender is implemented by stores that can persist one sample
// without rewriting the snapshot.
type sampleAppender interface {
	Append(ctx context.Context, sample models.MetricSample) error
}

// historyLocator is implemented by stores that can name where the history
// lives.
type historyLocator interface {
	Location() string
}

// metricsMonitor implements MetricsMonitor.
type metricsMonitor struct {
	source   collector.Source
	store    storage.HistoryStore
	detector *anomaly.Detector
	recorder *observability.Recorder
	logger   *slog.Logger

	mu         sync.Mutex
	history    *storage.History
	generation uint64
	trainedGen uint64

	// training collapses concurrent retrains of the same history generation.
	training singleflight.Group
}

// NewMetricsMonitor wires a monitor over an already loaded history. store
// receives every change to history; recorder may be nil.
func NewMetricsMonitor(source collector.Source, history *storage.History, store storage.HistoryStore, detector *anomaly.Detector, recorder *observability.Recorder, logger *slog.Logger) MetricsMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &metricsMonitor{
		source:   source,
		store:    store,
		detector: detector,
		recorder: recorder,
		logger:   logger,
		history:  history,
	}
}

// Collect reads one sample from the source, appends it to the history and
// persists the change.
func (m *metricsMonitor) Collect(ctx context.Context) (*CollectResult, error) {
	sample, err := m.source.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting metrics: %w", err)
	}
	source := collector.SourceName(m.source)

	m.mu.Lock()
	evicted := m.history.Append(sample)
	m.generation++
	size := m.history.Len()
	err = m.persist(ctx, sample)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.recorder.SampleCollected(source, sample, size)
	m.logger.Debug("sample collected", "source", source, "history_size", size, "evicted", evicted)
	return &CollectResult{Sample: sample, Source: source, HistorySize: size, Evicted: evicted}, nil
}

// persist writes the latest append to the store. Callers hold m.mu.
func (m *metricsMonitor) persist(ctx context.Context, sample models.MetricSample) error {
	if m.store == nil {
		return nil
	}
	if a, ok := m.store.(sampleAppender); ok {
		if err := a.Append(ctx, sample); err != nil {
			return fmt.Errorf("appending to history: %w", err)
		}
		return nil
	}
	if err := m.history.Save(ctx, m.store); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// Analyze collects a sample and checks it.
func (m *metricsMonitor) Analyze(ctx context.Context) (*AnomalyReport, error) {
	res, err := m.Collect(ctx)
	if err != nil {
		return nil, err
	}
	return m.Check(ctx, res.Sample)
}

// Check retrains the detector when the history changed since the last
// training run, then scores sample and records the verdict. Too little
// history is reported in the result, not as an error.
func (m *metricsMonitor) Check(ctx context.Context, sample models.MetricSample) (*AnomalyReport, error) {
	return m.check(ctx, sample, true)
}

// Score is Check without recording the verdict or a not-ready result. Views
// that re-read an already checked sample use it.
func (m *metricsMonitor) Score(ctx context.Context, sample models.MetricSample) (*AnomalyReport, error) {
	return m.check(ctx, sample, false)
}

func (m *metricsMonitor) check(ctx context.Context, sample models.MetricSample, record bool) (*AnomalyReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	gen := m.generation
	stale := !m.detector.Ready() || m.trainedGen != gen
	var samples []models.MetricSample
	if stale {
		samples = m.history.Samples()
	}
	available := m.history.Len()
	m.mu.Unlock()

	report := &AnomalyReport{Sample: sample, Available: available, Required: m.detector.MinSamples()}

	if stale {
		_, err, _ := m.training.Do(strconv.FormatUint(gen, 10), func() (any, error) {
			if err := m.detector.Train(samples); err != nil {
				return nil, err
			}
			m.recorder.ModelTrained(len(samples))
			return nil, nil
		})
		var notReady *anomaly.NotReadyError
		var mismatch *anomaly.FeatureMismatchError
		switch {
		case errors.As(err, &notReady):
			if record {
				m.recorder.ModelNotReady(notReady.Available, notReady.Required)
			}
			return report, nil
		case errors.As(err, &mismatch):
			return nil, fmt.Errorf("training detector: %w (history holds samples with other metrics; clear %s to retrain)", err, m.historyLocation())
		case err != nil:
			return nil, fmt.Errorf("training detector: %w", err)
		}
		m.mu.Lock()
		if gen > m.trainedGen {
			m.trainedGen = gen
		}
		m.mu.Unlock()
	}

	verdict, err := m.detector.Analyze(sample)
	if err != nil {
		return nil, fmt.Errorf("scoring sample: %w", err)
	}
	if record {
		m.recorder.AnomalyChecked(verdict.IsAnomaly, verdict.Score)
	}

	report.Ready = true
	report.TrainedOn = m.detector.TrainedOn()
	report.Verdict = verdict
	return report, nil
}

func (m *metricsMonitor) historyLocation() string {
	if l, ok := m.store.(historyLocator); ok {
		return l.Location()
	}
	return "the metrics history"
}

// History returns a copy of the metrics history, oldest first.
func (m *metricsMonitor) History() []models.MetricSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Samples()
}

// Latest returns the newest sample in the history.
func (m *metricsMonitor) Latest() (models.MetricSample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Latest()
}

// Features returns the detector's feature order.
func (m *metricsMonitor) Features() []string { return m.detector.Features() }

// MinSamples returns the training threshold.
func (m *metricsMonitor) MinSamples() int { return m.detector.MinSamples() }
