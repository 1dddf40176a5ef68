// Package bench 对随机排列做批量排序压测，按规模与存储结构汇总比较次数和耗时。
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/wyfcoding/pmergeme/algorithm/mergeinsert"
	"github.com/wyfcoding/pmergeme/cast"
	"github.com/wyfcoding/pmergeme/config"
	"github.com/wyfcoding/pmergeme/harness"
	"github.com/wyfcoding/pmergeme/logging"
	"github.com/wyfcoding/pmergeme/metrics"
	"github.com/wyfcoding/pmergeme/worker"
	"github.com/wyfcoding/pmergeme/xerrors"
)

// Stat 是某个规模在某种存储结构上的汇总。
type Stat struct {
	Size             int
	Backing          mergeinsert.Backing
	Rounds           int
	MinComparisons   int
	MaxComparisons   int
	TotalComparisons int
	TotalDuration    time.Duration
	Bound            int // F(n)
	InformationBound int // ⌈log2(n!)⌉
	Exceeded         int // 超过 Bound 的轮数
}

// AvgComparisons 返回平均比较次数。
func (s Stat) AvgComparisons() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.TotalComparisons) / float64(s.Rounds)
}

// AvgDuration 返回平均耗时。
func (s Stat) AvgDuration() time.Duration {
	if s.Rounds == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Rounds)
}

func (s *Stat) add(v harness.Variant) {
	if s.Rounds == 0 || v.Comparisons < s.MinComparisons {
		s.MinComparisons = v.Comparisons
	}
	s.MaxComparisons = max(s.MaxComparisons, v.Comparisons)
	s.Rounds++
	s.TotalComparisons += v.Comparisons
	s.TotalDuration += v.Duration
	if !v.WithinBound {
		s.Exceeded++
	}
}

// Result 是一次压测的结果。Stats 按配置中的规模顺序、再按存储结构顺序排列。
type Result struct {
	Seed     uint64
	Stats    []Stat
	Failures int
	// Stalls 是提交时队列已满、需要等待空位的次数，反映 worker 数量是否不足。
	Stalls   int
}

// Stat 查找指定规模与存储结构的汇总。
func (r *Result) Stat(size int, b mergeinsert.Backing) (Stat, bool) {
	for _, s := range r.Stats {
		if s.Size == size && s.Backing == b {
			return s, true
		}
	}
	return Stat{}, false
}

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option 定义压测选项。
type Option func(*options)

// WithLogger 设置日志记录器.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics 为压测使用的 worker 池注册指标.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

type statKey struct {
	size    int
	backing mergeinsert.Backing
}

// Run 对 cfg.Sizes 中每个规模生成 cfg.Rounds 个 1..size 的随机排列，
// 提交到 worker 池由 runner 排序并汇总。
// 单轮失败不会中断压测：失败计入 Failures，所有错误合并后与结果一起返回。
func Run(ctx context.Context, cfg config.BenchConfig, runner *harness.Runner, opts ...Option) (*Result, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = cast.Int64ToUint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	var (
		mu    sync.Mutex
		stats = make(map[statKey]*Stat)
		errs  []error
	)
	res := &Result{Seed: seed}

	record := func(report *harness.Report, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Failures++
			errs = append(errs, err)
		}
		if report == nil {
			return
		}
		for _, v := range report.Variants {
			k := statKey{size: report.Size, backing: v.Backing}
			s, ok := stats[k]
			if !ok {
				s = &Stat{
					Size:             report.Size,
					Backing:          v.Backing,
					Bound:            report.MaxComparisons,
					InformationBound: report.InformationBound,
				}
				stats[k] = s
			}
			s.add(v)
		}
	}

	pool := worker.NewPool(ctx,
		worker.WithName("bench"),
		worker.WithSize(cfg.Workers),
		worker.WithQueueSize(cfg.QueueSize),
		worker.WithMetrics(o.metrics),
		worker.WithLogger(o.logger),
		worker.WithPanicHandler(func(r any) {
			record(nil, xerrors.WrapInternal(fmt.Errorf("%v", r), "bench task panicked"))
		}),
	)

	o.logger.InfoContext(ctx, "bench started", "sizes", cfg.Sizes, "rounds", cfg.Rounds, "workers", cfg.Workers, "seed", seed)
	jobsDone := logging.LogDuration(ctx, "bench jobs", "workers", cfg.Workers, "queue_size", cfg.QueueSize)

	var submitErr error
submit:
	for _, size := range cfg.Sizes {
		for round := range cfg.Rounds {
			if err := ctx.Err(); err != nil {
				submitErr = err
				break submit
			}
			input := permutation(rng, size)
			task := func(ctx context.Context) {
				report, err := runner.Run(ctx, input)
				if err != nil {
					o.logger.WarnContext(ctx, "bench round failed", "size", size, "round", round, "error", err)
				}
				record(report, err)
			}
			// 队列已满时记一次等待，再阻塞提交。
			err := pool.TrySubmit(task)
			if errors.Is(err, worker.ErrPoolFull) {
				res.Stalls++
				err = pool.Submit(ctx, task)
			}
			if err != nil {
				submitErr = err
				break submit
			}
		}
	}
	pool.Close()
	jobsDone()

	res.Stats = collect(stats, cfg.Sizes, runner.Backings())
	o.logger.InfoContext(ctx, "bench finished",
		"jobs", pool.Completed(), "failures", res.Failures, "stalls", res.Stalls)

	if submitErr != nil {
		return res, xerrors.Wrap(submitErr, xerrors.ErrDeadlineExceeded, "bench cancelled")
	}
	return res, errors.Join(errs...)
}

func validate(cfg config.BenchConfig) error {
	if len(cfg.Sizes) == 0 {
		return xerrors.ErrInvalidBenchSize.Copy().WithDetail("no sizes configured")
	}
	for _, n := range cfg.Sizes {
		if n <= 0 {
			return xerrors.ErrInvalidBenchSize.Copy().WithContext("size", n)
		}
	}
	if cfg.Rounds <= 0 {
		return xerrors.ErrInvalidBenchSize.Copy().WithContext("rounds", cfg.Rounds)
	}
	return nil
}

// permutation 返回 1..n 的一个随机排列。
func permutation(rng *rand.Rand, n int) []uint32 {
	out := make([]uint32, n)
	for i, v := range rng.Perm(n) {
		out[i] = cast.Uint64ToUint32(cast.IntToUint64(v + 1))
	}
	return out
}

// collect 按规模配置顺序、存储结构顺序输出汇总；重复的规模只输出一次。
func collect(stats map[statKey]*Stat, sizes []int, backings []mergeinsert.Backing) []Stat {
	out := make([]Stat, 0, len(stats))
	seen := make(map[int]bool, len(sizes))
	for _, n := range sizes {
		if seen[n] {
			continue
		}
		seen[n] = true
		for _, b := range backings {
			if s, ok := stats[statKey{size: n, backing: b}]; ok {
				out = append(out, *s)
			}
		}
	}
	return slices.Clip(out)
}

// Print 以表格形式输出压测结果。
func (r *Result) Print(w io.Writer) {
	fmt.Fprintf(w, "seed: %d\n", r.Seed)

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"size", "backing", "rounds", "min", "avg", "max", "F(n)", "log2(n!)", "exceeded", "avg time"})
	for _, s := range r.Stats {
		table.Append([]string{
			strconv.Itoa(s.Size),
			s.Backing.String(),
			strconv.Itoa(s.Rounds),
			strconv.Itoa(s.MinComparisons),
			strconv.FormatFloat(s.AvgComparisons(), 'f', 1, 64),
			strconv.Itoa(s.MaxComparisons),
			strconv.Itoa(s.Bound),
			strconv.Itoa(s.InformationBound),
			strconv.Itoa(s.Exceeded),
			fmt.Sprintf("%d us", s.AvgDuration().Microseconds()),
		})
	}
	table.Render()

	if r.Stalls > 0 {
		fmt.Fprintf(w, "stalls: %d\n", r.Stalls)
	}
	if r.Failures > 0 {
		fmt.Fprintf(w, "failures: %d\n", r.Failures)
	}
}
