// Package metrics 业务与 HTTP 指标
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novel_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "novel_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "path"},
	)

	// 点赞/收藏/订阅 开关结果
	relationToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novel_relation_toggles_total",
			Help: "Relation toggle attempts by kind, direction and outcome",
		},
		[]string{"kind", "action", "result"},
	)

	views = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novel_views_total",
			Help: "Recorded novel and chapter views",
		},
		[]string{"target"},
	)

	fanoutNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novel_fanout_notifications_total",
			Help: "Notifications written by chapter fan-out",
		},
		[]string{"mode"},
	)

	fanoutFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novel_fanout_failures_total",
			Help: "Chapter fan-out failures and dropped jobs",
		},
		[]string{"mode", "reason"},
	)

	fanoutLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "novel_fanout_latency_seconds",
			Help:    "Delay between chapter publish and fan-out completion",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	dispatchQueueLen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "novel_fanout_queue_length",
			Help: "Sampled length of the async fan-out queue",
		},
	)
)

// Middleware gin 请求指标；path 用路由模板避免基数爆炸
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func RecordToggle(kind, action, result string) {
	relationToggles.WithLabelValues(kind, action, result).Inc()
}

func RecordView(target string) { views.WithLabelValues(target).Inc() }

func RecordFanout(mode string, written int64, since time.Time) {
	fanoutNotifications.WithLabelValues(mode).Add(float64(written))
	if !since.IsZero() {
		fanoutLatency.WithLabelValues(mode).Observe(time.Since(since).Seconds())
	}
}

func RecordFanoutFailure(mode, reason string) {
	fanoutFailures.WithLabelValues(mode, reason).Inc()
}

func SetQueueLength(n int) { dispatchQueueLen.Set(float64(n)) }
