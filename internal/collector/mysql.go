package collector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// DefaultTimeout bounds connecting to and querying the server.
const DefaultTimeout = 5 * time.Second

// MySQLSource reads the enabled counters from SHOW GLOBAL STATUS. Names
// absent from the status table, such as Innodb_buffer_pool_size, are looked
// up in the global variables.
type MySQLSource struct {
	db      *sql.DB
	enabled []string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewMySQLSource opens a connection pool for cfg. No connection is made
// until the first Collect or Ping.
func NewMySQLSource(cfg models.MySQLConfig, enabled []string, logger *slog.Logger) (*MySQLSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsnCfg, err := driverConfig(cfg)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(dsnCfg)
	if err != nil {
		return nil, fmt.Errorf("configuring mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &MySQLSource{
		db:      db,
		enabled: append([]string(nil), enabled...),
		timeout: dsnCfg.Timeout,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// driverConfig maps the mysql config section onto the driver's Config.
func driverConfig(cfg models.MySQLConfig) (*mysql.Config, error) {
	timeout := DefaultTimeout
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parsing mysql.timeout %q: %w", cfg.Timeout, err)
		}
		timeout = d
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	c.DBName = cfg.Database
	c.Timeout = timeout
	c.ReadTimeout = timeout
	c.WriteTimeout = timeout
	c.InterpolateParams = true
	return c, nil
}

// Name implements Source.
func (s *MySQLSource) Name() string { return SourceMySQL }

// ping checks that the server is reachable.
func (s *MySQLSource) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging mysql: %w", err)
	}
	return nil
}

// Collect implements Source.
func (s *MySQLSource) Collect(ctx context.Context) (models.MetricSample, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status, err := s.readPairs(ctx, "SHOW GLOBAL STATUS")
	if err != nil {
		return models.MetricSample{}, fmt.Errorf("reading global status: %w", err)
	}

	var missing []string
	for _, name := range s.enabled {
		if _, ok := lookupFold(status, name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		query := "SHOW GLOBAL VARIABLES WHERE Variable_name IN (?" + strings.Repeat(", ?", len(missing)-1) + ")"
		args := make([]any, len(missing))
		for i, name := range missing {
			args[i] = name
		}
		vars, err := s.readPairs(ctx, query, args...)
		if err != nil {
			s.logger.Warn("reading global variables", "error", err)
		}
		for k, v := range vars {
			status[k] = v
		}
	}

	return sampleFromStatus(status, s.enabled, s.now(), s.logger), nil
}

// Close releases the connection pool.
func (s *MySQLSource) Close() error {
	return s.db.Close()
}

func (s *MySQLSource) readPairs(ctx context.Context, query string, args ...any) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name.String] = value.String
	}
	return out, rows.Err()
}

// sampleFromStatus builds a sample holding exactly the enabled metrics.
// Missing or non-numeric values read as 0.
func sampleFromStatus(status map[string]string, enabled []string, now time.Time, logger *slog.Logger) models.MetricSample {
	values := make(map[string]float64, len(enabled))
	for _, name := range enabled {
		raw, ok := lookupFold(status, name)
		if !ok {
			logger.Warn("metric not reported by server", "metric", name)
			values[name] = 0
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			logger.Warn("metric value is not numeric", "metric", name, "value", raw)
			v = 0
		}
		values[name] = v
	}
	return models.MetricSample{Timestamp: now.UTC(), Values: values}
}

// lookupFold finds name in m, ignoring case as MySQL does.
func lookupFold(m map[string]string, name string) (string, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
