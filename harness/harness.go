// Package harness 在多种主链存储结构上并发运行 Ford-Johnson 排序，
// 校验结果一致性与比较次数上界，并记录耗时、指标与追踪信息。
package harness

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/wyfcoding/pmergeme/algorithm"
	"github.com/wyfcoding/pmergeme/algorithm/mergeinsert"
	"github.com/wyfcoding/pmergeme/contextx"
	"github.com/wyfcoding/pmergeme/idgen"
	"github.com/wyfcoding/pmergeme/metrics"
	"github.com/wyfcoding/pmergeme/tracing"
	"github.com/wyfcoding/pmergeme/xerrors"
)

// Variant 是一种存储结构上的排序结果。
type Variant struct {
	Backing     mergeinsert.Backing
	Sorted      []uint32
	Comparisons int
	Duration    time.Duration
	WithinBound bool
}

// Report 是一次运行的汇总。Variants 的顺序与 Runner 配置的存储结构顺序一致。
type Report struct {
	RunID            string
	Size             int
	Inversions       int64
	MaxComparisons   int
	InformationBound int
	Variants         []Variant
}

// Sorted 返回排序结果。各存储结构的结果已校验一致，取第一个即可。
func (r *Report) Sorted() []uint32 {
	if len(r.Variants) == 0 {
		return nil
	}
	return r.Variants[0].Sorted
}

// Variant 按存储结构查找结果。
func (r *Report) Variant(b mergeinsert.Backing) (Variant, bool) {
	for _, v := range r.Variants {
		if v.Backing == b {
			return v, true
		}
	}
	return Variant{}, false
}

type sortFunc func(input []uint32, b mergeinsert.Backing) mergeinsert.Result[uint32]

func defaultSort(input []uint32, b mergeinsert.Backing) mergeinsert.Result[uint32] {
	return mergeinsert.Sort(input, mergeinsert.WithBacking(b))
}

// Runner 负责执行与校验。Runner 本身不保存每次运行的状态，可并发调用 Run。
type Runner struct {
	backings    []mergeinsert.Backing
	metrics     *metrics.Metrics
	logger      *slog.Logger
	ids         idgen.Generator
	strictBound bool
	sort        sortFunc
}

// Option 定义 Runner 配置选项。
type Option func(*Runner)

// WithBackings 设置参与比较的存储结构，默认全部。
func WithBackings(backings ...mergeinsert.Backing) Option {
	return func(r *Runner) {
		if len(backings) > 0 {
			r.backings = slices.Clone(backings)
		}
	}
}

// WithMetrics 注入指标采集器.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithLogger 设置日志记录器.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithIDGenerator 设置运行 ID 生成器，未设置时报告不带运行 ID.
func WithIDGenerator(g idgen.Generator) Option {
	return func(r *Runner) {
		r.ids = g
	}
}

// WithStrictBound 比较次数超过 MaxComparisons 时 Run 返回 ErrBoundExceeded。
func WithStrictBound(strict bool) Option {
	return func(r *Runner) {
		r.strictBound = strict
	}
}

// New 创建 Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		backings: mergeinsert.Backings(),
		logger:   slog.Default(),
		sort:     defaultSort,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backings 返回 Runner 使用的存储结构。
func (r *Runner) Backings() []mergeinsert.Backing {
	return slices.Clone(r.backings)
}

// Run 在每种存储结构上并发排序 input，各自使用独立的计数器。
// 结果不一致时返回 ErrResultMismatch；启用严格上界时超出上界返回 ErrBoundExceeded。
// 出错时仍返回已经生成的报告，便于调用方展示。
func (r *Runner) Run(ctx context.Context, input []uint32) (*Report, error) {
	report := &Report{
		RunID:            idgen.RunID(r.ids),
		Size:             len(input),
		Inversions:       algorithm.CountInversions(input),
		MaxComparisons:   mergeinsert.MaxComparisons(len(input)),
		InformationBound: mergeinsert.InformationBound(len(input)),
	}
	ctx, span := tracing.StartRunSpan(ctx, report.RunID, report.Size, report.Inversions, report.MaxComparisons)
	defer span.End()
	ctx = contextx.WithSize(contextx.WithRunID(ctx, report.RunID), report.Size)

	p := pool.NewWithResults[Variant]().WithContext(ctx)
	for _, b := range r.backings {
		p.Go(func(ctx context.Context) (Variant, error) {
			return r.runVariant(ctx, input, b, report.MaxComparisons)
		})
	}
	variants, err := p.Wait()
	if err != nil {
		tracing.SetError(ctx, err)
		return report, xerrors.Wrap(err, xerrors.ErrDeadlineExceeded, "sort run cancelled")
	}

	// 结果收集顺序不确定，按配置顺序重排。
	slices.SortFunc(variants, func(a, b Variant) int {
		return slices.Index(r.backings, a.Backing) - slices.Index(r.backings, b.Backing)
	})
	report.Variants = variants
	for _, v := range variants {
		tracing.RecordVariant(ctx, v.Backing.String(), v.Comparisons, v.WithinBound, v.Duration)
	}

	if err := r.verify(ctx, report); err != nil {
		tracing.SetError(ctx, err)
		return report, err
	}
	return report, nil
}

func (r *Runner) runVariant(ctx context.Context, input []uint32, b mergeinsert.Backing, bound int) (Variant, error) {
	if err := ctx.Err(); err != nil {
		return Variant{}, err
	}
	ctx = contextx.WithBacking(ctx, b.String())

	start := time.Now()
	res := r.sort(input, b)
	elapsed := time.Since(start)

	v := Variant{
		Backing:     b,
		Sorted:      res.Sorted,
		Comparisons: res.Comparisons,
		Duration:    elapsed,
		WithinBound: res.Comparisons <= bound,
	}
	r.metrics.ObserveSort(b.String(), v.Comparisons, elapsed, v.WithinBound)
	r.logger.DebugContext(ctx, "variant sorted", "comparisons", v.Comparisons, "duration", elapsed)
	return v, nil
}

// verify 校验每个结果有序、各结果一致，以及比较次数上界。
func (r *Runner) verify(ctx context.Context, report *Report) error {
	if len(report.Variants) == 0 {
		return nil
	}
	base := report.Variants[0]
	if !slices.IsSorted(base.Sorted) {
		r.logger.ErrorContext(ctx, "sorted output is not ascending", "variant", base.Backing.String())
		return xerrors.ErrNotSorted.Copy().WithContext("backing", base.Backing.String())
	}

	for _, v := range report.Variants[1:] {
		if !slices.Equal(base.Sorted, v.Sorted) {
			if r.metrics != nil {
				r.metrics.MismatchTotal.Inc()
			}
			r.logger.ErrorContext(ctx, "backings produced different output",
				"left", base.Backing.String(), "right", v.Backing.String())
			return xerrors.ErrResultMismatch.Copy().
				WithContext("left", base.Backing.String()).
				WithContext("right", v.Backing.String())
		}
	}

	for _, v := range report.Variants {
		if v.WithinBound {
			continue
		}
		r.logger.WarnContext(ctx, "comparison count above Ford-Johnson bound",
			"variant", v.Backing.String(), "comparisons", v.Comparisons, "bound", report.MaxComparisons)
		if r.strictBound {
			return xerrors.ErrBoundExceeded.Copy().
				WithContext("backing", v.Backing.String()).
				WithDetail("%d comparisons for %d elements, bound %d", v.Comparisons, report.Size, report.MaxComparisons)
		}
	}
	return nil
}
