// Package metrics provides Prometheus metrics for backend calls, control
// writes, and the device cache.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "camctl"

var (
	backendCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "calls_total",
		Help:      "Backend calls by backend, operation and result",
	}, []string{"backend", "operation", "result"})

	backendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "call_duration_seconds",
		Help:      "Backend call latency",
		Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"backend", "operation"})

	backendFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "fallbacks_total",
		Help:      "Native calls retried on the fallback backend",
	}, []string{"operation"})

	controlWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "controls",
		Name:      "writes_total",
		Help:      "Validated control writes by control and result kind",
	}, []string{"control", "result"})

	// Local counters so the API can report without scraping.
	fallbackCount   = make(map[string]uint64)
	fallbackCountMu sync.RWMutex
)

// ObserveBackendCall records one backend call. result is "ok" or an error kind.
func ObserveBackendCall(backend, operation, result string, elapsed time.Duration) {
	backendCalls.WithLabelValues(backend, operation, result).Inc()
	backendDuration.WithLabelValues(backend, operation).Observe(elapsed.Seconds())
}

// IncFallback counts a call that was retried on the fallback backend.
func IncFallback(operation string) {
	backendFallbacks.WithLabelValues(operation).Inc()
	fallbackCountMu.Lock()
	fallbackCount[operation]++
	fallbackCountMu.Unlock()
}

// Fallbacks returns the fallback count per operation since start.
func Fallbacks() map[string]uint64 {
	fallbackCountMu.RLock()
	defer fallbackCountMu.RUnlock()
	out := make(map[string]uint64, len(fallbackCount))
	for k, v := range fallbackCount {
		out[k] = v
	}
	return out
}

// IncControlWrite counts a validated write. result is "ok" or an error kind.
func IncControlWrite(control, result string) {
	controlWrites.WithLabelValues(control, result).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
