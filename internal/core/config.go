// Package core holds p3's configuration layer: locating the base directory,
// reading config.yaml (or the older config.json) through Viper, applying
// P3_ environment overrides, and validating the result.
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/divyansh-cyber/AceE6data/internal/anomaly"
	"github.com/divyansh-cyber/AceE6data/internal/observability"
	"github.com/divyansh-cyber/AceE6data/internal/queryanalysis"
	"github.com/divyansh-cyber/AceE6data/internal/storage"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// EnvPrefix prefixes every environment override, e.g. P3_MYSQL_PASSWORD.
const EnvPrefix = "P3"

// HomeEnv names the variable that pins the base directory.
const HomeEnv = "P3_HOME"

// Storage backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// configFileNames are searched in order inside the base path.
var configFileNames = []string{"config.yaml", "config.yml", "config.json"}

// ConfigurationManager loads and validates p3 configuration.
type ConfigurationManager interface {
	Load() (*models.Config, error)
	Validate(cfg *models.Config) error
	WriteDefault(path string) error
	// ConfigFile returns the file Load read, or "" when defaults were used.
	ConfigFile() string
}

// viperConfigManager implements ConfigurationManager using Viper.
type viperConfigManager struct {
	basePath   string
	configFile string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// configuration files and .env from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *models.Config {
	return &models.Config{
		MySQL: models.MySQLConfig{
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Database: "mysql",
			Timeout:  "5s",
		},
		ML: models.MLConfig{
			Contamination:         anomaly.DefaultContamination,
			RandomState:           42,
			MinSamplesForTraining: anomaly.DefaultMinSamples,
			NumTrees:              anomaly.DefaultNumTrees,
			MaxSamples:            anomaly.DefaultMaxSamples,
		},
		Metrics: models.MetricsConfig{
			Enabled: []string{
				"Questions",
				"Threads_connected",
				"Threads_running",
				"Slow_queries",
				"Innodb_buffer_pool_size",
				"Innodb_buffer_pool_pages_data",
				"Innodb_buffer_pool_pages_free",
				"Connections",
				"Uptime",
			},
			Thresholds: map[string]float64{
				"Threads_connected": 100,
				"Threads_running":   50,
				"Slow_queries":      10,
				"Questions":         1000000,
			},
		},
		Query: queryanalysis.DefaultConfig(),
		Storage: models.StorageConfig{
			Backend:      BackendFile,
			HistoryFile:  "metrics_history.json",
			MaxHistory:   storage.DefaultMaxHistory,
			AnalysisFile: "recent_analysis.json",
			EventLog:     ".p3_events.jsonl",
			Redis: models.RedisConfig{
				Addr: "localhost:6379",
				Key:  storage.DefaultRedisKey,
			},
		},
		Alerts:  defaultAlerts(),
		Logging: models.LoggingConfig{Level: "info", Format: "text"},
		Server:  models.ServerConfig{Addr: ":8080"},
	}
}

func defaultAlerts() models.AlertConfig {
	th := observability.DefaultAlertThresholds()
	return models.AlertConfig{
		AnomalyWindowHours:  th.AnomalyWindowHours,
		MaxAnomalies:        th.MaxAnomalies,
		SlowQueryPercentage: th.SlowQueryPercentage,
	}
}

// setDefaults registers every key so that AutomaticEnv can override keys
// absent from the file.
func setDefaults(v *viper.Viper, cfg *models.Config) {
	v.SetDefault("mysql.host", cfg.MySQL.Host)
	v.SetDefault("mysql.port", cfg.MySQL.Port)
	v.SetDefault("mysql.user", cfg.MySQL.User)
	v.SetDefault("mysql.password", cfg.MySQL.Password)
	v.SetDefault("mysql.database", cfg.MySQL.Database)
	v.SetDefault("mysql.timeout", cfg.MySQL.Timeout)

	v.SetDefault("ml.contamination", cfg.ML.Contamination)
	v.SetDefault("ml.random_state", cfg.ML.RandomState)
	v.SetDefault("ml.min_samples_for_training", cfg.ML.MinSamplesForTraining)
	v.SetDefault("ml.num_trees", cfg.ML.NumTrees)
	v.SetDefault("ml.max_samples", cfg.ML.MaxSamples)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.thresholds", cfg.Metrics.Thresholds)

	v.SetDefault("query.slow_query_threshold", cfg.Query.SlowQueryThreshold)
	v.SetDefault("query.low_efficiency_ratio", cfg.Query.LowEfficiencyRatio)
	for name, bp := range map[string]models.SeverityBreakpoint{
		"critical": cfg.Query.Severity.Critical,
		"high":     cfg.Query.Severity.High,
		"medium":   cfg.Query.Severity.Medium,
	} {
		v.SetDefault("query.severity."+name+".execution_time", bp.ExecutionTime)
		v.SetDefault("query.severity."+name+".rows_examined", bp.RowsExamined)
	}

	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.history_file", cfg.Storage.HistoryFile)
	v.SetDefault("storage.max_history", cfg.Storage.MaxHistory)
	v.SetDefault("storage.analysis_file", cfg.Storage.AnalysisFile)
	v.SetDefault("storage.event_log", cfg.Storage.EventLog)
	v.SetDefault("storage.redis.addr", cfg.Storage.Redis.Addr)
	v.SetDefault("storage.redis.password", cfg.Storage.Redis.Password)
	v.SetDefault("storage.redis.db", cfg.Storage.Redis.DB)
	v.SetDefault("storage.redis.key", cfg.Storage.Redis.Key)

	v.SetDefault("alerts.anomaly_window_hours", cfg.Alerts.AnomalyWindowHours)
	v.SetDefault("alerts.max_anomalies", cfg.Alerts.MaxAnomalies)
	v.SetDefault("alerts.slow_query_percentage", cfg.Alerts.SlowQueryPercentage)
	v.SetDefault("alerts.webhook_url", cfg.Alerts.WebhookURL)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("server.addr", cfg.Server.Addr)
}

// Load reads .env and the first config file found in the base path, then
// applies P3_ environment overrides. A missing file yields the defaults.
func (cm *viperConfigManager) Load() (*models.Config, error) {
	// A missing .env is the common case.
	_ = godotenv.Load(filepath.Join(cm.basePath, ".env"))

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cm.configFile = findConfigFile(cm.basePath)
	if cm.configFile != "" {
		v.SetConfigFile(cm.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Base(cm.configFile), err)
		}
	}

	cfg := &models.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	// AutomaticEnv does not reach into slices, so a comma list is accepted.
	if raw := os.Getenv(EnvPrefix + "_METRICS_ENABLED"); raw != "" {
		cfg.Metrics.Enabled = splitList(raw)
	}
	return cfg, nil
}

// ConfigFile returns the file read by the last Load.
func (cm *viperConfigManager) ConfigFile() string { return cm.configFile }

// Validate checks cfg for invalid values and reports every problem at once.
func (cm *viperConfigManager) Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string
	if cfg.MySQL.Port < 1 || cfg.MySQL.Port > 65535 {
		errs = append(errs, fmt.Sprintf("mysql.port %d is invalid, must be between 1 and 65535", cfg.MySQL.Port))
	}
	if len(cfg.Metrics.Enabled) == 0 {
		errs = append(errs, "metrics.enabled must list at least one metric")
	}
	seen := make(map[string]bool, len(cfg.Metrics.Enabled))
	for _, name := range cfg.Metrics.Enabled {
		if seen[name] {
			errs = append(errs, fmt.Sprintf("metrics.enabled lists %q twice", name))
		}
		seen[name] = true
	}

	errs = append(errs, prefixed("ml.", anomaly.FromML(cfg.ML, cfg.Metrics.Enabled).Model.Validate())...)
	errs = append(errs, prefixed("query.", queryanalysis.ValidateConfig(cfg.Query))...)

	switch cfg.Storage.Backend {
	case BackendFile:
	case BackendRedis:
		if cfg.Storage.Redis.Addr == "" {
			errs = append(errs, "storage.redis.addr must be set for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.backend %q is invalid, must be one of: file, redis", cfg.Storage.Backend))
	}
	if cfg.Storage.MaxHistory < 1 {
		errs = append(errs, fmt.Sprintf("storage.max_history must be positive, got %d", cfg.Storage.MaxHistory))
	}

	if cfg.Alerts.AnomalyWindowHours < 1 {
		errs = append(errs, fmt.Sprintf("alerts.anomaly_window_hours must be positive, got %d", cfg.Alerts.AnomalyWindowHours))
	}
	if cfg.Alerts.MaxAnomalies < 0 {
		errs = append(errs, fmt.Sprintf("alerts.max_anomalies must be non-negative, got %d", cfg.Alerts.MaxAnomalies))
	}
	if cfg.Alerts.SlowQueryPercentage < 0 || cfg.Alerts.SlowQueryPercentage > 100 {
		errs = append(errs, fmt.Sprintf("alerts.slow_query_percentage must be in [0, 100], got %v", cfg.Alerts.SlowQueryPercentage))
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q is invalid, must be one of: text, json", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// WriteDefault writes the default configuration as YAML to path. It refuses
// to overwrite an existing file.
func (cm *viperConfigManager) WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	data, err := MarshalYAML(DefaultConfig())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// MarshalYAML renders cfg as YAML.
func MarshalYAML(cfg *models.Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshalling config: %w", err)
	}
	return data, nil
}

// ResolvePath joins a relative storage path onto basePath.
func ResolvePath(basePath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(basePath, p)
}

// ResolveBasePath determines p3's base directory: P3_HOME when set, else
// the nearest ancestor of the working directory holding a config file,
// else the working directory.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	for dir := cwd; ; {
		if findConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

func findConfigFile(dir string) string {
	for _, name := range configFileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

func prefixed(prefix string, err error) []string {
	if err == nil {
		return nil
	}
	var out []string
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			out = append(out, prefixed(prefix, e)...)
		}
		return out
	}
	return []string{prefix + err.Error()}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
