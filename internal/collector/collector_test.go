package collector

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/divyansh-cyber/AceE6data/internal/logging"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

var defaultEnabled = []string{
	"Questions", "Threads_connected", "Threads_running", "Slow_queries",
	"Innodb_buffer_pool_size", "Innodb_buffer_pool_pages_data",
	"Innodb_buffer_pool_pages_free", "Connections", "Uptime",
}

func TestSampleFromStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "warn", "text")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	status := map[string]string{
		"Questions":         "123456",
		"THREADS_CONNECTED": "12",
		"Threads_running":   "ON",
		"Uptime":            " 3600 ",
		"Ssl_cipher":        "",
	}
	s := sampleFromStatus(status, []string{"Questions", "Threads_connected", "Threads_running", "Slow_queries", "Uptime"}, now, logger)

	want := map[string]float64{
		"Questions":         123456,
		"Threads_connected": 12,
		"Threads_running":   0,
		"Slow_queries":      0,
		"Uptime":            3600,
	}
	if len(s.Values) != len(want) {
		t.Fatalf("sample has %d values, want %d: %v", len(s.Values), len(want), s.Values)
	}
	for k, v := range want {
		if s.Values[k] != v {
			t.Errorf("%s = %v, want %v", k, s.Values[k], v)
		}
	}
	if !s.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", s.Timestamp, now)
	}
	logs := buf.String()
	if !strings.Contains(logs, "metric=Threads_running") || !strings.Contains(logs, "metric=Slow_queries") {
		t.Errorf("expected warnings for non-numeric and missing metrics, got:\n%s", logs)
	}
}

func TestDriverConfig(t *testing.T) {
	c, err := driverConfig(models.MySQLConfig{Host: "db", Port: 3307, User: "u", Password: "p", Database: "mysql", Timeout: "2s"})
	if err != nil {
		t.Fatalf("driverConfig: %v", err)
	}
	if c.Addr != "db:3307" || c.User != "u" || c.Passwd != "p" || c.DBName != "mysql" {
		t.Errorf("config = %+v", c)
	}
	if c.Timeout != 2*time.Second || !c.InterpolateParams {
		t.Errorf("Timeout = %v, InterpolateParams = %v", c.Timeout, c.InterpolateParams)
	}

	c, err = driverConfig(models.MySQLConfig{Host: "localhost"})
	if err != nil {
		t.Fatalf("driverConfig: %v", err)
	}
	if c.Addr != "localhost:3306" || c.Timeout != DefaultTimeout {
		t.Errorf("defaults: Addr = %s, Timeout = %v", c.Addr, c.Timeout)
	}

	if _, err := driverConfig(models.MySQLConfig{Host: "x", Timeout: "soon"}); err == nil {
		t.Error("expected error for bad timeout")
	}
}

func TestDemoSource_WithinVariation(t *testing.T) {
	src := NewDemoSource(defaultEnabled, 42)
	for i := 0; i < 50; i++ {
		s, err := src.Collect(context.Background())
		if err != nil {
			t.Fatalf("Collect: %v", err)
		}
		if len(s.Values) != len(defaultEnabled) {
			t.Fatalf("sample has %d values, want %d", len(s.Values), len(defaultEnabled))
		}
		for name, v := range s.Values {
			base, _ := demoBaseline(name)
			if v < base*(1-DemoVariation) || v > base*(1+DemoVariation) {
				t.Errorf("%s = %v outside ±10%% of %v", name, v, base)
			}
		}
	}
}

func TestDemoSource_Deterministic(t *testing.T) {
	a, b := NewDemoSource(defaultEnabled, 7), NewDemoSource(defaultEnabled, 7)
	for i := 0; i < 5; i++ {
		sa, _ := a.Collect(context.Background())
		sb, _ := b.Collect(context.Background())
		for k := range sa.Values {
			if sa.Values[k] != sb.Values[k] {
				t.Fatalf("same seed diverged at %s: %v != %v", k, sa.Values[k], sb.Values[k])
			}
		}
	}
}

func TestDemoSource_UnknownMetricReadsZero(t *testing.T) {
	s, err := NewDemoSource([]string{"Questions", "Made_up"}, 1).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if v, ok := s.Values["Made_up"]; !ok || v != 0 {
		t.Errorf("Made_up = %v, %v; want 0, true", v, ok)
	}
}

func TestDemoSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDemoSource(defaultEnabled, 1).Collect(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// fakeSource is a Source returning a canned result.
type fakeSource struct {
	name  string
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Collect(context.Context) (models.MetricSample, error) {
	f.calls++
	if f.err != nil {
		return models.MetricSample{}, f.err
	}
	return models.NewMetricSample(time.Now(), map[string]float64{"Questions": 1}), nil
}

func TestFallbackSource_PrefersPrimary(t *testing.T) {
	primary := &fakeSource{name: "mysql"}
	fallback := &fakeSource{name: "demo"}
	src := NewFallbackSource(primary, fallback, logging.Discard())

	if _, err := src.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if fallback.calls != 0 || SourceName(src) != "mysql" || src.Degraded() {
		t.Errorf("fallback calls = %d, source = %s, degraded = %v", fallback.calls, SourceName(src), src.Degraded())
	}
}

func TestFallbackSource_SwitchesOnce(t *testing.T) {
	primary := &fakeSource{name: "mysql", err: errors.New("connection refused")}
	fallback := &fakeSource{name: "demo"}
	src := NewFallbackSource(primary, fallback, logging.Discard())

	for i := 0; i < 3; i++ {
		if _, err := src.Collect(context.Background()); err != nil {
			t.Fatalf("Collect: %v", err)
		}
	}
	if primary.calls != 1 {
		t.Errorf("primary called %d times, want 1", primary.calls)
	}
	if fallback.calls != 3 {
		t.Errorf("fallback called %d times, want 3", fallback.calls)
	}
	if !src.Degraded() || src.Name() != "demo" || SourceName(src) != "demo" {
		t.Errorf("degraded = %v, name = %s", src.Degraded(), src.Name())
	}
}

func TestFallbackSource_BothFail(t *testing.T) {
	src := NewFallbackSource(
		&fakeSource{name: "mysql", err: errors.New("down")},
		&fakeSource{name: "demo", err: errors.New("also down")},
		logging.Discard(),
	)
	if _, err := src.Collect(context.Background()); err == nil {
		t.Fatal("expected error when both sources fail")
	}
}

func TestMySQLSource_Live(t *testing.T) {
	host := os.Getenv("P3_TEST_MYSQL_HOST")
	if host == "" {
		t.Skip("P3_TEST_MYSQL_HOST not set")
	}
	src, err := NewMySQLSource(models.MySQLConfig{
		Host:     host,
		Port:     3306,
		User:     os.Getenv("P3_TEST_MYSQL_USER"),
		Password: os.Getenv("P3_TEST_MYSQL_PASSWORD"),
	}, defaultEnabled, logging.Discard())
	if err != nil {
		t.Fatalf("NewMySQLSource: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	if err := src.ping(ctx); err != nil {
		t.Skipf("mysql not reachable: %v", err)
	}
	s, err := src.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if s.Values["Uptime"] <= 0 {
		t.Errorf("Uptime = %v, want positive", s.Values["Uptime"])
	}
	if s.Values["Innodb_buffer_pool_size"] <= 0 {
		t.Errorf("Innodb_buffer_pool_size = %v, want positive from global variables", s.Values["Innodb_buffer_pool_size"])
	}
}
