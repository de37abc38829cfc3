package logging

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Metrics is a concurrency-safe registry of named counters and gauges. The
// zero value is ready to use.
type Metrics struct {
	values sync.Map // string -> *atomic.Uint64
}

func (m *Metrics) slot(key string) *atomic.Uint64 {
	if v, ok := m.values.Load(key); ok {
		return v.(*atomic.Uint64)
	}
	v, _ := m.values.LoadOrStore(key, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

// TelemetryAdd increments a counter.
func (m *Metrics) TelemetryAdd(key string, delta uint64) {
	if m == nil || key == "" {
		return
	}
	m.slot(key).Add(delta)
}

// TelemetryStore overwrites a gauge.
func (m *Metrics) TelemetryStore(key string, value uint64) {
	if m == nil || key == "" {
		return
	}
	m.slot(key).Store(value)
}

// Snapshot copies every metric.
func (m *Metrics) Snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	if m == nil {
		return out
	}
	m.values.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Uint64).Load()
		return true
	})
	return out
}

// Keys lists metric names in sorted order.
func (m *Metrics) Keys() []string {
	snapshot := m.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
