// Package tracing 为排序运行提供 OpenTelemetry 链路追踪.
// 一次运行对应一个 Span，每种存储结构的结果以事件形式挂在该 Span 上.
// 未调用 InitTracer 时使用全局 no-op TracerProvider，所有函数依然可以安全调用.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/wyfcoding/pmergeme/config"
	"github.com/wyfcoding/pmergeme/logging"
)

const tracerName = "github.com/wyfcoding/pmergeme"

// 排序 Span 上使用的属性键.
const (
	AttrRunID       = attribute.Key("pmergeme.run_id")
	AttrSize        = attribute.Key("pmergeme.input.size")
	AttrInversions  = attribute.Key("pmergeme.input.inversions")
	AttrBound       = attribute.Key("pmergeme.bound")
	AttrBacking     = attribute.Key("pmergeme.backing")
	AttrComparisons = attribute.Key("pmergeme.comparisons")
	AttrWithinBound = attribute.Key("pmergeme.within_bound")
	AttrDurationUS  = attribute.Key("pmergeme.duration_us")
)

// InitTracer 按配置安装 OTLP gRPC 导出器，返回关闭函数.
// cfg.Enabled 为 false 时不做任何事，返回空操作的关闭函数.
func InitTracer(ctx context.Context, cfg config.TracingConfig) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplerRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logging.Info(ctx, "tracer provider initialized",
		"service", cfg.ServiceName, "endpoint", cfg.OTLPEndpoint, "sampler_ratio", cfg.SamplerRatio)
	return tp.Shutdown, nil
}

// StartSpan 创建并开始一个新的 Span，调用者负责 End.
//
//nolint:spancheck // 通用包装，生命周期由调用方管理.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// StartRunSpan 为一次排序运行创建 Span，并标记运行 ID、输入规模、逆序对数与比较次数上界.
//
//nolint:spancheck // 由 harness.Run 负责 End.
func StartRunSpan(ctx context.Context, runID string, size int, inversions int64, bound int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		AttrSize.Int(size),
		AttrInversions.Int64(inversions),
		AttrBound.Int(bound),
	}
	if runID != "" {
		attrs = append(attrs, AttrRunID.String(runID))
	}
	return StartSpan(ctx, "pmergeme.sort", trace.WithAttributes(attrs...))
}

// RecordVariant 在当前 Span 上记录一种存储结构的结果：
// 追加 "variant sorted" 事件，并设置 comparisons.<backing> 属性便于按存储结构检索.
func RecordVariant(ctx context.Context, backing string, comparisons int, withinBound bool, elapsed time.Duration) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int("comparisons."+backing, comparisons))
	span.AddEvent("variant sorted", trace.WithAttributes(
		AttrBacking.String(backing),
		AttrComparisons.Int(comparisons),
		AttrWithinBound.Bool(withinBound),
		AttrDurationUS.Int64(elapsed.Microseconds()),
	))
}

// AddTag 为当前 Span 设置一个属性，按值类型选择属性种类.
func AddTag(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	default:
		span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// SetError 记录错误并把 Span 状态置为 codes.Error. err 为 nil 时不做任何事.
func SetError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetTraceID 返回 ctx 中的追踪 ID，没有时返回空串.
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
