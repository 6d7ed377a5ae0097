package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registerOnce           sync.Once
	httpRequests           *prometheus.CounterVec
	httpDuration           *prometheus.HistogramVec
	packageWrites          *prometheus.CounterVec
	ratingSubmissions      *prometheus.CounterVec
	defaultDurationBuckets = prometheus.DefBuckets
)

const (
	namespaceMetrics = "lfapp"
)

// MustRegister 初始化 Prometheus 指标并注册 Go 运行时采样器，需在应用启动阶段调用一次。
func MustRegister() {
	registerOnce.Do(func() {
		httpRequests = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "http",
					Name:      "requests_total",
					Help:      "HTTP 请求次数，按方法、路由与状态码统计。",
				},
				[]string{"method", "route", "status"},
			),
		)
		httpDuration = registerHistogramVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespaceMetrics,
					Subsystem: "http",
					Name:      "request_duration_seconds",
					Help:      "HTTP 请求耗时，按方法与路由区分。",
					Buckets:   defaultDurationBuckets,
				},
				[]string{"method", "route"},
			),
		)
		packageWrites = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "catalog",
					Name:      "package_writes_total",
					Help:      "应用条目的创建/更新/删除次数，按操作与结果分类。",
				},
				[]string{"operation", "result"},
			),
		)
		ratingSubmissions = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "catalog",
					Name:      "rating_submissions_total",
					Help:      "评分提交次数，按结果分类。",
				},
				[]string{"result"},
			),
		)

		registerRuntimeCollectors()
	})
}

// ObserveHTTPRequest 记录一次 HTTP 请求的状态码与耗时。
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if httpRequests == nil || httpDuration == nil {
		return
	}
	methodLabel := normalizeLabel(method, "unknown")
	routeLabel := normalizeLabel(route, "unmatched")
	httpRequests.WithLabelValues(methodLabel, routeLabel, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(methodLabel, routeLabel).Observe(duration.Seconds())
}

// RecordPackageWrite 记录应用条目写操作的结果分布。
func RecordPackageWrite(operation, result string) {
	if packageWrites == nil {
		return
	}
	packageWrites.WithLabelValues(normalizeLabel(operation, "unknown"), normalizeLabel(result, "unknown")).Inc()
}

// RecordRatingSubmission 记录评分提交的结果分布。
func RecordRatingSubmission(result string) {
	if ratingSubmissions == nil {
		return
	}
	ratingSubmissions.WithLabelValues(normalizeLabel(result, "unknown")).Inc()
}

func normalizeLabel(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func registerCounterVec(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		if existing := alreadyRegisteredCounterVec(err); existing != nil {
			return existing
		}
		panic(err)
	}
	return vec
}

func registerHistogramVec(vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(vec); err != nil {
		if existing := alreadyRegisteredHistogramVec(err); existing != nil {
			return existing
		}
		panic(err)
	}
	return vec
}

func registerRuntimeCollectors() {
	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
}

func alreadyRegisteredCounterVec(err error) *prometheus.CounterVec {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing
		}
	}
	return nil
}

func alreadyRegisteredHistogramVec(err error) *prometheus.HistogramVec {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
			return existing
		}
	}
	return nil
}

func isAlreadyRegistered(err error) bool {
	_, ok := err.(prometheus.AlreadyRegisteredError)
	return ok
}
