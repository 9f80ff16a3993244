package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// TimestampKey is the field carrying the collection time in the flat JSON
// form of a MetricSample.
const TimestampKey = "timestamp"

// MetricSample is one snapshot of server status counters keyed by metric name.
type MetricSample struct {
	Timestamp time.Time
	Values    map[string]float64
}

// NewMetricSample returns a sample holding a copy of values.
func NewMetricSample(ts time.Time, values map[string]float64) MetricSample {
	cp := make(map[string]float64, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return MetricSample{Timestamp: ts, Values: cp}
}

// Keys returns the sample's metric names in sorted order.
func (s MetricSample) Keys() []string {
	keys := make([]string, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON encodes the sample as a flat object of metric values plus a
// "timestamp" field in unix seconds.
func (s MetricSample) MarshalJSON() ([]byte, error) {
	flat := make(map[string]float64, len(s.Values)+1)
	for k, v := range s.Values {
		flat[k] = v
	}
	flat[TimestampKey] = unixSeconds(s.Timestamp)
	return json.Marshal(flat)
}

// UnmarshalJSON decodes the flat form written by MarshalJSON. Every field
// other than "timestamp" must be numeric.
func (s *MetricSample) UnmarshalJSON(data []byte) error {
	var flat map[string]float64
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("decoding metric sample: %w", err)
	}
	values := make(map[string]float64, len(flat))
	var ts time.Time
	for k, v := range flat {
		if k == TimestampKey {
			ts = fromUnixSeconds(v)
			continue
		}
		values[k] = v
	}
	s.Timestamp = ts
	s.Values = values
	return nil
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(f float64) time.Time {
	if f == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
