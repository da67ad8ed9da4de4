package utils

import (
	"sync"
	"time"
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	mu           sync.RWMutex
	requestCount uint64
	errorCount   uint64

	// Maps operation name to list of latencies in nanoseconds
	operationTimes map[string][]int64

	systemStartTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		operationTimes:  make(map[string][]int64),
		systemStartTime: time.Now(),
	}
}

func (mc *MetricsCollector) IncrementRequests() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.requestCount++
}

func (mc *MetricsCollector) IncrementErrors() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errorCount++
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, exists := mc.operationTimes[operationName]; !exists {
		mc.operationTimes[operationName] = make([]int64, 0)
	}
	mc.operationTimes[operationName] = append(
		mc.operationTimes[operationName],
		duration.Nanoseconds(),
	)
}

// Snapshot returns per-operation request counts and mean latency, plus the
// process uptime. Used by the health endpoint.
func (mc *MetricsCollector) Snapshot() map[string]any {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	ops := make(map[string]map[string]any, len(mc.operationTimes))
	for name, samples := range mc.operationTimes {
		var total int64
		for _, ns := range samples {
			total += ns
		}
		mean := time.Duration(0)
		if len(samples) > 0 {
			mean = time.Duration(total / int64(len(samples)))
		}
		ops[name] = map[string]any{
			"count":        len(samples),
			"mean_latency": mean.String(),
		}
	}

	return map[string]any{
		"requests":   mc.requestCount,
		"errors":     mc.errorCount,
		"uptime":     time.Since(mc.systemStartTime).String(),
		"operations": ops,
	}
}
