package collector

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// DemoVariation is the relative jitter applied around each baseline.
const DemoVariation = 0.1

// demoBaselines approximate a moderately loaded server.
var demoBaselines = map[string]float64{
	"Questions":                     1000000,
	"Threads_connected":             50,
	"Threads_running":               5,
	"Slow_queries":                  10,
	"Innodb_buffer_pool_size":       134217728,
	"Innodb_buffer_pool_pages_data": 8000,
	"Innodb_buffer_pool_pages_free": 1000,
	"Connections":                   1000,
	"Uptime":                        86400,
}

// demoBaseline returns the centre value DemoSource uses for a metric.
func demoBaseline(name string) (float64, bool) {
	v, ok := demoBaselines[name]
	return v, ok
}

// DemoSource generates samples within DemoVariation of fixed baselines. It
// emits exactly the enabled metrics; names without a baseline read 0.
type DemoSource struct {
	enabled []string
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDemoSource returns a DemoSource seeded with seed.
func NewDemoSource(enabled []string, seed int64) *DemoSource {
	return &DemoSource{
		enabled: append([]string(nil), enabled...),
		now:     time.Now,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Name implements Source.
func (d *DemoSource) Name() string { return SourceDemo }

// Collect implements Source.
func (d *DemoSource) Collect(ctx context.Context) (models.MetricSample, error) {
	if err := ctx.Err(); err != nil {
		return models.MetricSample{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	values := make(map[string]float64, len(d.enabled))
	for _, name := range d.enabled {
		base := demoBaselines[name]
		v := base * (1 + (d.rng.Float64()*2-1)*DemoVariation)
		if v < 0 {
			v = 0
		}
		values[name] = v
	}
	return models.MetricSample{Timestamp: d.now().UTC(), Values: values}, nil
}
