// Package metrics 封装了基于 Prometheus 的独立注册表与排序相关的标准指标。
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/pmergeme/async"
)

const namespace = "pmergeme"

// Metrics 封装了基于 Prometheus 的指标采集注册表及预定义的标准监控指标。
type Metrics struct {
	registry *prometheus.Registry // 内部独立的 Prometheus 注册中心

	SortsTotal         *prometheus.CounterVec   // 排序次数 (维度: backing)
	SortComparisons    *prometheus.HistogramVec // 单次排序的比较次数分布
	SortDuration       *prometheus.HistogramVec // 单次排序耗时分布
	BoundExceededTotal *prometheus.CounterVec   // 比较次数超过 Ford-Johnson 上界的次数
	MismatchTotal      prometheus.Counter       // 不同存储结构结果不一致的次数
	BuildInfo          *prometheus.GaugeVec
}

// NewMetrics 初始化并返回一个新的指标采集器。
// 它会自动注册 Go 运行时指标和进程指标。
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.SortsTotal = m.NewCounterVec(&prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sorts_total",
		Help:      "Total number of merge-insertion sorts",
	}, []string{"backing"})

	m.SortComparisons = m.NewHistogramVec(&prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sort_comparisons",
		Help:      "Element comparisons performed by one sort",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
	}, []string{"backing"})

	m.SortDuration = m.NewHistogramVec(&prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sort_duration_seconds",
		Help:      "Wall time of one sort in seconds",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
	}, []string{"backing"})

	m.BoundExceededTotal = m.NewCounterVec(&prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bound_exceeded_total",
		Help:      "Sorts whose comparison count exceeded the Ford-Johnson bound",
	}, []string{"backing"})

	m.MismatchTotal = m.NewCounter(&prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "result_mismatch_total",
		Help:      "Runs where backings produced different output",
	})

	slog.Debug("unified metrics registry initialized", "service", serviceName)
	return m
}

// ObserveSort 记录一次排序的结果。
func (m *Metrics) ObserveSort(backing string, comparisons int, elapsed time.Duration, withinBound bool) {
	if m == nil {
		return
	}
	m.SortsTotal.WithLabelValues(backing).Inc()
	m.SortComparisons.WithLabelValues(backing).Observe(float64(comparisons))
	m.SortDuration.WithLabelValues(backing).Observe(elapsed.Seconds())
	if !withinBound {
		m.BoundExceededTotal.WithLabelValues(backing).Inc()
	}
}

// register 注册采集器；同名同标签的采集器已存在时返回已注册的实例，
// 使同一注册表上重复创建的 worker 池共享指标。
func register[T prometheus.Collector](reg *prometheus.Registry, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// NewCounter 创建并注册一个新的计数器。
func (m *Metrics) NewCounter(opts *prometheus.CounterOpts) prometheus.Counter {
	return register(m.registry, prometheus.NewCounter(*opts))
}

// NewCounterVec 创建并注册一个新的计数器指标。
func (m *Metrics) NewCounterVec(opts *prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	return register(m.registry, prometheus.NewCounterVec(*opts, labelNames))
}

// NewGauge 创建并注册一个新的仪表盘。
func (m *Metrics) NewGauge(opts *prometheus.GaugeOpts) prometheus.Gauge {
	return register(m.registry, prometheus.NewGauge(*opts))
}

// NewGaugeVec 创建并注册一个新的仪表盘指标。
func (m *Metrics) NewGaugeVec(opts *prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	return register(m.registry, prometheus.NewGaugeVec(*opts, labelNames))
}

// NewHistogramVec 创建并注册一个新的直方图指标。
func (m *Metrics) NewHistogramVec(opts *prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	return register(m.registry, prometheus.NewHistogramVec(*opts, labelNames))
}

// Registry 返回内部注册表。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回用于暴露指标的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ExposeHttp 在指定端口启动一个独立的 HTTP 服务器用于暴露指标数据。
// 返回一个清理函数用于优雅关闭该服务器。
func (m *Metrics) ExposeHttp(port string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	async.SafeGo(func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	})
	slog.Info("metrics server listening", "addr", srv.Addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown metrics server", "error", err)
		}
	}
}
