package cli

import (
	"log/slog"

	"github.com/divyansh-cyber/AceE6data/internal/core"
	"github.com/divyansh-cyber/AceE6data/internal/observability"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath  string
	Config    *models.Config
	ConfigMgr core.ConfigurationManager
	Logger    *slog.Logger

	Monitor core.MetricsMonitor
	Queries core.QueryAnalyzer
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
	Prom        *observability.PromMetrics
)

// Options are the global flags handed to Setup.
type Options struct {
	LogLevel string
	Demo     bool
}

// Setup wires the package variables above from the parsed global flags. It
// runs once, before the first command that needs services.
var Setup func(opts Options) error
