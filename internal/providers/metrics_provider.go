package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"backupd/internal/structures"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncBackups(result string)
	ObserveBackupDuration(duration time.Duration)
	SetBackupSize(bytes int)
	SetHistoryLength(n int)
	IncRestores(result string)
}

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type MetricsProvider struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	backupsTotal    *prometheus.CounterVec
	backupDuration  prometheus.Histogram
	backupSize      prometheus.Gauge
	historyLength   prometheus.Gauge
	restoresTotal   *prometheus.CounterVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncBackups(result string) {
	m.backupsTotal.WithLabelValues(result).Inc()
}

func (m *MetricsProvider) ObserveBackupDuration(duration time.Duration) {
	m.backupDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) SetBackupSize(bytes int) {
	m.backupSize.Set(float64(bytes))
}

func (m *MetricsProvider) SetHistoryLength(n int) {
	m.historyLength.Set(float64(n))
}

func (m *MetricsProvider) IncRestores(result string) {
	m.restoresTotal.WithLabelValues(result).Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "backupd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backupd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "backupd_cache_hits_total",
			Help: "Total number of store cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "backupd_cache_misses_total",
			Help: "Total number of store cache misses",
		}),

		backupsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "backupd_backups_total",
			Help: "Total number of backup captures by result",
		}, []string{"result"}),

		backupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "backupd_backup_duration_seconds",
			Help:    "Duration of backup captures in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		backupSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "backupd_backup_size_bytes",
			Help: "Serialized size of the most recent backup",
		}),

		historyLength: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "backupd_history_length",
			Help: "Number of retained backups",
		}),

		restoresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "backupd_restores_total",
			Help: "Total number of restores by result",
		}, []string{"result"}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncBackups(_ string)                              {}
func (n *noopMetrics) ObserveBackupDuration(_ time.Duration)            {}
func (n *noopMetrics) SetBackupSize(_ int)                              {}
func (n *noopMetrics) SetHistoryLength(_ int)                           {}
func (n *noopMetrics) IncRestores(_ string)                             {}
