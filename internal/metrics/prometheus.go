// Package metrics Prometheus 指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SamplesIngested 入库采样数
	SamplesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_monitoring_samples_ingested_total",
			Help: "Total number of samples recorded",
		},
		[]string{"source"},
	)

	// IngestLatency 单条采样入库耗时（含报警判断）
	IngestLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "remote_monitoring_ingest_latency_seconds",
			Help:    "Sample ingestion latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// AlarmsTriggered 新产生的报警记录
	AlarmsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_monitoring_alarms_triggered_total",
			Help: "Total number of alarm records created",
		},
		[]string{"alarm_type", "alarm_level"},
	)

	// AlarmEvaluationErrors 报警判断失败（不影响入库）
	AlarmEvaluationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remote_monitoring_alarm_evaluation_errors_total",
			Help: "Total number of alarm evaluation failures during ingestion",
		},
	)

	// NotifyFailures 报警通知失败
	NotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remote_monitoring_notify_failures_total",
			Help: "Total number of failed alarm notifications",
		},
	)

	// FormulaEvaluations 虚拟表计算结果
	FormulaEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_monitoring_formula_evaluations_total",
			Help: "Total number of virtual meter formula evaluations",
		},
		[]string{"result"},
	)

	// RequestsTotal HTTP 请求数
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_monitoring_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration HTTP 请求耗时
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remote_monitoring_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware 记录请求数和耗时
// 路径不作为 label（路径中带 ID，基数不可控）
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
