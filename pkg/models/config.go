package models

import "strings"

// MySQLConfig holds connection settings for the observed server.
type MySQLConfig struct {
	Host     string `yaml:"host" json:"host" mapstructure:"host"`
	Port     int    `yaml:"port" json:"port" mapstructure:"port"`
	User     string `yaml:"user" json:"user" mapstructure:"user"`
	Password string `yaml:"password" json:"password" mapstructure:"password"`
	Database string `yaml:"database" json:"database" mapstructure:"database"`
	Timeout  string `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
}

// MLConfig configures the metric anomaly detector.
type MLConfig struct {
	Contamination         float64 `yaml:"contamination" json:"contamination" mapstructure:"contamination"`
	RandomState           int64   `yaml:"random_state" json:"random_state" mapstructure:"random_state"`
	MinSamplesForTraining int     `yaml:"min_samples_for_training" json:"min_samples_for_training" mapstructure:"min_samples_for_training"`
	NumTrees              int     `yaml:"num_trees" json:"num_trees" mapstructure:"num_trees"`
	MaxSamples            int     `yaml:"max_samples" json:"max_samples" mapstructure:"max_samples"`
}

// MetricsConfig lists the collected status counters in feature order and
// the display thresholds used when printing them.
type MetricsConfig struct {
	Enabled    []string           `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Thresholds map[string]float64 `yaml:"thresholds,omitempty" json:"thresholds,omitempty" mapstructure:"thresholds"`
}

// Threshold returns the display threshold for a metric. Keys are matched
// case-insensitively since Viper lowercases map keys.
func (m MetricsConfig) Threshold(name string) (float64, bool) {
	if v, ok := m.Thresholds[name]; ok {
		return v, true
	}
	for k, v := range m.Thresholds {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return 0, false
}

// SeverityBreakpoint is one row of the severity table. A query reaches the
// level when either bound is exceeded.
type SeverityBreakpoint struct {
	ExecutionTime float64 `yaml:"execution_time" json:"execution_time" mapstructure:"execution_time"`
	RowsExamined  int64   `yaml:"rows_examined" json:"rows_examined" mapstructure:"rows_examined"`
}

// SeverityThresholds holds the breakpoints for each non-low severity.
type SeverityThresholds struct {
	Critical SeverityBreakpoint `yaml:"critical" json:"critical" mapstructure:"critical"`
	High     SeverityBreakpoint `yaml:"high" json:"high" mapstructure:"high"`
	Medium   SeverityBreakpoint `yaml:"medium" json:"medium" mapstructure:"medium"`
}

// QueryConfig configures the query classifier.
type QueryConfig struct {
	SlowQueryThreshold float64            `yaml:"slow_query_threshold" json:"slow_query_threshold" mapstructure:"slow_query_threshold"`
	LowEfficiencyRatio float64            `yaml:"low_efficiency_ratio" json:"low_efficiency_ratio" mapstructure:"low_efficiency_ratio"`
	Severity           SeverityThresholds `yaml:"severity" json:"severity" mapstructure:"severity"`
}

// RedisConfig addresses the optional Redis history backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr" mapstructure:"addr"`
	Password string `yaml:"password" json:"password" mapstructure:"password"`
	DB       int    `yaml:"db" json:"db" mapstructure:"db"`
	Key      string `yaml:"key" json:"key" mapstructure:"key"`
}

// StorageConfig selects where snapshots and the event log live. Relative
// paths resolve against the base path.
type StorageConfig struct {
	Backend      string      `yaml:"backend" json:"backend" mapstructure:"backend"`
	HistoryFile  string      `yaml:"history_file" json:"history_file" mapstructure:"history_file"`
	MaxHistory   int         `yaml:"max_history" json:"max_history" mapstructure:"max_history"`
	AnalysisFile string      `yaml:"analysis_file" json:"analysis_file" mapstructure:"analysis_file"`
	EventLog     string      `yaml:"event_log" json:"event_log" mapstructure:"event_log"`
	Redis        RedisConfig `yaml:"redis" json:"redis" mapstructure:"redis"`
}

// AlertConfig configures the alert rules evaluated over the event log.
type AlertConfig struct {
	AnomalyWindowHours  int     `yaml:"anomaly_window_hours" json:"anomaly_window_hours" mapstructure:"anomaly_window_hours"`
	MaxAnomalies        int     `yaml:"max_anomalies" json:"max_anomalies" mapstructure:"max_anomalies"`
	SlowQueryPercentage float64 `yaml:"slow_query_percentage" json:"slow_query_percentage" mapstructure:"slow_query_percentage"`
	WebhookURL          string  `yaml:"webhook_url,omitempty" json:"webhook_url,omitempty" mapstructure:"webhook_url"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`
	Format string `yaml:"format" json:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr" mapstructure:"addr"`
}

// Config is the complete p3 configuration read from config.yaml (or the
// legacy config.json) via Viper.
type Config struct {
	MySQL   MySQLConfig   `yaml:"mysql" json:"mysql" mapstructure:"mysql"`
	ML      MLConfig      `yaml:"ml" json:"ml" mapstructure:"ml"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`
	Query   QueryConfig   `yaml:"query" json:"query" mapstructure:"query"`
	Storage StorageConfig `yaml:"storage" json:"storage" mapstructure:"storage"`
	Alerts  AlertConfig   `yaml:"alerts" json:"alerts" mapstructure:"alerts"`
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`
	Server  ServerConfig  `yaml:"server" json:"server" mapstructure:"server"`
}
