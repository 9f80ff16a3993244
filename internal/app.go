// Package internal provides the App struct that wires all components of p3
// together and initializes the CLI layer.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/divyansh-cyber/AceE6data/internal/anomaly"
	"github.com/divyansh-cyber/AceE6data/internal/cli"
	"github.com/divyansh-cyber/AceE6data/internal/collector"
	"github.com/divyansh-cyber/AceE6data/internal/core"
	"github.com/divyansh-cyber/AceE6data/internal/logging"
	"github.com/divyansh-cyber/AceE6data/internal/observability"
	"github.com/divyansh-cyber/AceE6data/internal/queryanalysis"
	"github.com/divyansh-cyber/AceE6data/internal/storage"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// redisConnectTimeout bounds the startup ping of the Redis history backend.
const redisConnectTimeout = 3 * time.Second

// App holds all service dependencies for p3.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.Config
	Logger    *slog.Logger

	// Storage layer
	HistoryStore  storage.HistoryStore
	AnalysisStore *storage.AnalysisStore

	// Collection and detection
	Source   collector.Source
	MySQL    *collector.MySQLSource
	Detector *anomaly.Detector

	// Core services
	Monitor core.MetricsMonitor
	Queries core.QueryAnalyzer

	// Observability
	EventLog    observability.EventLog
	Prom        *observability.PromMetrics
	Recorder    *observability.Recorder
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of p3. basePath is the directory
// holding the config file, .env and the relative storage paths.
func NewApp(basePath string, opts cli.Options) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.Load()
	if err != nil {
		return nil, err
	}
	if err := app.ConfigMgr.Validate(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	app.Logger = logging.New(level, cfg.Logging.Format)
	if file := app.ConfigMgr.ConfigFile(); file != "" {
		app.Logger.Debug("configuration loaded", "file", file)
	}

	// --- Observability ---
	app.Prom = observability.NewPromMetrics()
	if path := core.ResolvePath(basePath, cfg.Storage.EventLog); path != "" {
		app.EventLog, err = observability.NewJSONLEventLog(path)
		if err != nil {
			// Non-fatal: stats and alerts are unavailable without the log.
			app.Logger.Warn("event log disabled", "path", path, "error", err)
			app.EventLog = nil
		}
	}
	app.Recorder = observability.NewRecorder(app.EventLog, app.Prom, app.Logger)
	if app.EventLog != nil {
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, alertThresholds(cfg.Alerts))
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Alerts.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Alerts.WebhookURL, notifierInstance(cfg.MySQL, opts.Demo))
	}

	// --- Storage layer ---
	app.HistoryStore = app.openHistoryStore(cfg.Storage)
	history, err := storage.LoadHistory(context.Background(), app.HistoryStore, cfg.Storage.MaxHistory)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.AnalysisStore = storage.NewAnalysisStore(core.ResolvePath(basePath, cfg.Storage.AnalysisFile))

	// --- Collection and detection ---
	demo := collector.NewDemoSource(cfg.Metrics.Enabled, time.Now().UnixNano())
	if opts.Demo {
		app.Source = demo
	} else {
		app.MySQL, err = collector.NewMySQLSource(cfg.MySQL, cfg.Metrics.Enabled, app.Logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Source = collector.NewFallbackSource(app.MySQL, demo, app.Logger)
	}

	app.Detector, err = anomaly.NewDetector(anomaly.FromML(cfg.ML, cfg.Metrics.Enabled))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("configuring anomaly detector: %w", err)
	}

	// --- Core services ---
	app.Monitor = core.NewMetricsMonitor(app.Source, history, app.HistoryStore, app.Detector, app.Recorder, app.Logger)

	classifier, err := queryanalysis.NewClassifier(cfg.Query, queryanalysis.DefaultCategories())
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("configuring query classifier: %w", err)
	}
	app.Queries = core.NewQueryAnalyzer(classifier, app.AnalysisStore, app.Recorder, app.Logger)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.ConfigMgr = app.ConfigMgr
	cli.Logger = app.Logger
	cli.Monitor = app.Monitor
	cli.Queries = app.Queries
	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier
	cli.Prom = app.Prom

	return app, nil
}

// openHistoryStore returns the configured history backend. An unreachable
// Redis falls back to the file store so that collection keeps working.
func (a *App) openHistoryStore(cfg models.StorageConfig) storage.HistoryStore {
	file := storage.NewFileHistoryStore(core.ResolvePath(a.BasePath, cfg.HistoryFile), cfg.MaxHistory, a.Logger)
	if cfg.Backend != core.BackendRedis {
		return file
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	store, err := storage.NewRedisHistoryStore(ctx, cfg.Redis, cfg.MaxHistory, a.Logger)
	if err != nil {
		a.Logger.Warn("redis history unavailable, using file store", "addr", cfg.Redis.Addr, "path", file.Path(), "error", err)
		return file
	}
	return store
}

// notifierInstance names the monitored server in alert digests.
func notifierInstance(cfg models.MySQLConfig, demo bool) string {
	if demo {
		return "demo data"
	}
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

func alertThresholds(cfg models.AlertConfig) observability.AlertThresholds {
	return observability.AlertThresholds{
		AnomalyWindowHours:  cfg.AnomalyWindowHours,
		MaxAnomalies:        cfg.MaxAnomalies,
		SlowQueryPercentage: cfg.SlowQueryPercentage,
	}
}

// Close releases the event log, the MySQL pool and the history backend. It
// is safe to call on a partially built App.
func (a *App) Close() error {
	var errs []error
	if a.EventLog != nil {
		errs = append(errs, a.EventLog.Close())
	}
	if a.MySQL != nil {
		errs = append(errs, a.MySQL.Close())
	}
	if a.HistoryStore != nil {
		errs = append(errs, a.HistoryStore.Close())
	}
	return errors.Join(errs...)
}

// ResolveBasePath determines the base path for p3's configuration and data.
func ResolveBasePath() string {
	return core.ResolveBasePath()
}
