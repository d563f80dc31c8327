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

// Summary is a point-in-time view of collected metrics, suitable for
// the health endpoint.
type Summary struct {
	Uptime        string           `json:"uptime"`
	RequestCount  uint64           `json:"requests"`
	ErrorCount    uint64           `json:"errors"`
	AvgLatencyMs  map[string]int64 `json:"avg_latency_ms"`
	OperationHits map[string]int   `json:"operation_hits"`
}

func (mc *MetricsCollector) Snapshot() Summary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	avg := make(map[string]int64, len(mc.operationTimes))
	hits := make(map[string]int, len(mc.operationTimes))
	for op, times := range mc.operationTimes {
		if len(times) == 0 {
			continue
		}
		var total int64
		for _, t := range times {
			total += t
		}
		avg[op] = total / int64(len(times)) / int64(time.Millisecond)
		hits[op] = len(times)
	}

	return Summary{
		Uptime:        time.Since(mc.systemStartTime).Round(time.Second).String(),
		RequestCount:  mc.requestCount,
		ErrorCount:    mc.errorCount,
		AvgLatencyMs:  avg,
		OperationHits: hits,
	}
}
