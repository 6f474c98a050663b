package workflow

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

type OpMetric struct {
	Count   int
	Errors  int
	TotalNs int64
	MaxNs   int64
	LastNs  int64
}

type OperationMetric struct {
	Count         int   `json:"count"`
	Errors        int   `json:"errors"`
	AvgLatencyMs  int64 `json:"avg_latency_ms"`
	MaxLatencyMs  int64 `json:"max_latency_ms"`
	LastLatencyMs int64 `json:"last_latency_ms"`
}

type MetricsSnapshot struct {
	ErrorCounters map[string]int             `json:"error_counters"`
	Operations    map[string]OperationMetric `json:"operations"`
	UploadedBytes int64                      `json:"uploaded_bytes"`
	LastUpdatedAt time.Time                  `json:"last_updated_at"`
}

// Metrics keeps an in-process snapshot of workflow operations and mirrors
// every update into prometheus collectors.
type Metrics struct {
	mu            sync.RWMutex
	errorCounters map[string]int
	opMetrics     map[string]*OpMetric
	uploadedBytes int64
	lastUpdatedAt time.Time

	opsTotal      *prometheus.CounterVec
	opDuration    *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	uploadedTotal prometheus.Counter
}

// NewMetrics registers the workflow collectors on reg. A nil reg keeps the
// collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		errorCounters: map[string]int{
			ErrorCategoryAPI:        0,
			ErrorCategoryWallet:     0,
			ErrorCategoryStorage:    0,
			ErrorCategoryChain:      0,
			ErrorCategoryValidation: 0,
		},
		opMetrics: map[string]*OpMetric{},
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lensfrens",
			Subsystem: "workflow",
			Name:      "operations_total",
			Help:      "Workflow operations by outcome.",
		}, []string{"operation", "outcome"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lensfrens",
			Subsystem: "workflow",
			Name:      "operation_duration_seconds",
			Help:      "Workflow operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"operation"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lensfrens",
			Subsystem: "workflow",
			Name:      "errors_total",
			Help:      "Workflow errors by category.",
		}, []string{"category"}),
		uploadedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lensfrens",
			Name:      "content_uploaded_bytes_total",
			Help:      "Bytes sent to the content store.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.opsTotal, m.opDuration, m.errorsTotal, m.uploadedTotal)
	}
	return m
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int, len(m.errorCounters))
	for k, v := range m.errorCounters {
		counters[k] = v
	}
	opStats := make(map[string]OperationMetric, len(m.opMetrics))
	for name, metric := range m.opMetrics {
		avg := int64(0)
		if metric.Count > 0 {
			avg = metric.TotalNs / int64(metric.Count) / int64(time.Millisecond)
		}
		opStats[name] = OperationMetric{
			Count:         metric.Count,
			Errors:        metric.Errors,
			AvgLatencyMs:  avg,
			MaxLatencyMs:  metric.MaxNs / int64(time.Millisecond),
			LastLatencyMs: metric.LastNs / int64(time.Millisecond),
		}
	}
	return MetricsSnapshot{
		ErrorCounters: counters,
		Operations:    opStats,
		UploadedBytes: m.uploadedBytes,
		LastUpdatedAt: m.lastUpdatedAt,
	}
}

func (m *Metrics) RecordError(category string) {
	category = normalizeErrorCategory(category)
	m.errorsTotal.WithLabelValues(category).Inc()
	m.mu.Lock()
	m.errorCounters[category]++
	m.lastUpdatedAt = time.Now().UTC()
	m.mu.Unlock()
}

// RecordOp records one finished operation; err decides the outcome label.
func (m *Metrics) RecordOp(operation string, started time.Time, err error) {
	elapsed := time.Since(started)
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	m.opsTotal.WithLabelValues(operation, outcome).Inc()
	m.opDuration.WithLabelValues(operation).Observe(elapsed.Seconds())

	latency := elapsed.Nanoseconds()
	m.mu.Lock()
	defer m.mu.Unlock()
	metric, ok := m.opMetrics[operation]
	if !ok {
		metric = &OpMetric{}
		m.opMetrics[operation] = metric
	}
	metric.Count++
	if err != nil {
		metric.Errors++
	}
	metric.TotalNs += latency
	metric.LastNs = latency
	if latency > metric.MaxNs {
		metric.MaxNs = latency
	}
	m.lastUpdatedAt = time.Now().UTC()
}

// AddUploadedBytes matches contentstore.Options.OnUploaded.
func (m *Metrics) AddUploadedBytes(n int64) {
	if n <= 0 {
		return
	}
	m.uploadedTotal.Add(float64(n))
	m.mu.Lock()
	m.uploadedBytes += n
	m.lastUpdatedAt = time.Now().UTC()
	m.mu.Unlock()
}
