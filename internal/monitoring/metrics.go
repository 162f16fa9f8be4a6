package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标。
type Metrics struct {
	// 入库流水线指标
	FeedsBuilt     prometheus.Counter
	FeedsRejected  prometheus.Counter
	EncodingErrors prometheus.Counter
	FeedsInserted  prometheus.Counter
	InsertFailures prometheus.Counter
	QueueDepth     prometheus.Gauge

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics 创建监控指标。promauto 会自动完成注册，
// 进程内只能调用一次。
func NewMetrics() *Metrics {
	return &Metrics{
		FeedsBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Name: "maillist_feeds_built_total",
			Help: "Total number of feeds built from inbound mail",
		}),
		FeedsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "maillist_feeds_rejected_total",
			Help: "Total number of inbound messages rejected by mailbox resolution",
		}),
		EncodingErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "maillist_encoding_errors_total",
			Help: "Total number of inbound messages dropped for invalid encoding",
		}),
		FeedsInserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "maillist_feeds_inserted_total",
			Help: "Total number of feeds persisted to storage",
		}),
		InsertFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "maillist_insert_failures_total",
			Help: "Total number of failed storage inserts (feeds lost)",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "maillist_ingest_queue_depth",
			Help: "Number of feeds waiting in the ingestion queue",
		}),
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maillist_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maillist_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
}

// RecordHTTPRequest 记录一次 HTTP 请求。
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// HTTPHandler 返回 /metrics 端点处理器。
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
