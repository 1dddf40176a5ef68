package bench

import (
	"bytes"
	"context"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/pmergeme/algorithm/mergeinsert"
	"github.com/wyfcoding/pmergeme/config"
	"github.com/wyfcoding/pmergeme/harness"
	"github.com/wyfcoding/pmergeme/logging"
	"github.com/wyfcoding/pmergeme/metrics"
	"github.com/wyfcoding/pmergeme/xerrors"
)

func testConfig() config.BenchConfig {
	return config.BenchConfig{
		Sizes:     []int{1, 2, 8, 100},
		Rounds:    6,
		Workers:   3,
		QueueSize: 2,
		Seed:      42,
	}
}

func TestRunAggregatesPerSizeAndBacking(t *testing.T) {
	m := metrics.NewMetrics("test")
	runner := harness.New(harness.WithLogger(logging.Discard()), harness.WithMetrics(m))

	res, err := Run(context.Background(), testConfig(), runner, WithLogger(logging.Discard()), WithMetrics(m))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), res.Seed)
	assert.Zero(t, res.Failures)
	require.Len(t, res.Stats, 8)

	for i, n := range []int{1, 2, 8, 100} {
		for j, b := range mergeinsert.Backings() {
			s := res.Stats[i*2+j]
			assert.Equal(t, n, s.Size)
			assert.Equal(t, b, s.Backing)
			assert.Equal(t, 6, s.Rounds)
			assert.Equal(t, mergeinsert.MaxComparisons(n), s.Bound)
			assert.Equal(t, mergeinsert.InformationBound(n), s.InformationBound)
			assert.LessOrEqual(t, s.MinComparisons, s.MaxComparisons)
			assert.InDelta(t, float64(s.TotalComparisons)/6, s.AvgComparisons(), 1e-9)
		}
	}

	one, ok := res.Stat(1, mergeinsert.BackingSlice)
	require.True(t, ok)
	assert.Zero(t, one.MaxComparisons)

	two, ok := res.Stat(2, mergeinsert.BackingDeque)
	require.True(t, ok)
	assert.Equal(t, 1, two.MinComparisons)
	assert.Equal(t, 1, two.MaxComparisons)

	// 两种存储结构对同一输入的比较次数一致。
	for _, n := range []int{8, 100} {
		s, _ := res.Stat(n, mergeinsert.BackingSlice)
		d, _ := res.Stat(n, mergeinsert.BackingDeque)
		assert.Equal(t, s.TotalComparisons, d.TotalComparisons, "n=%d", n)
	}

	assert.InDelta(t, 24, testutil.ToFloat64(m.SortsTotal.WithLabelValues("slice")), 0)
	n, err := testutil.GatherAndCount(m.Registry(), "pmergeme_worker_pool_tasks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunIsReproducibleWithSeed(t *testing.T) {
	runner := harness.New(harness.WithLogger(logging.Discard()))
	cfg := testConfig()

	first, err := Run(context.Background(), cfg, runner, WithLogger(logging.Discard()))
	require.NoError(t, err)
	second, err := Run(context.Background(), cfg, runner, WithLogger(logging.Discard()))
	require.NoError(t, err)

	require.Len(t, second.Stats, len(first.Stats))
	for i := range first.Stats {
		assert.Equal(t, first.Stats[i].TotalComparisons, second.Stats[i].TotalComparisons)
		assert.Equal(t, first.Stats[i].MinComparisons, second.Stats[i].MinComparisons)
		assert.Equal(t, first.Stats[i].MaxComparisons, second.Stats[i].MaxComparisons)
	}
}

func TestRunClockSeedIsReplayable(t *testing.T) {
	runner := harness.New(harness.WithLogger(logging.Discard()))
	cfg := testConfig()
	cfg.Seed = 0

	first, err := Run(context.Background(), cfg, runner, WithLogger(logging.Discard()))
	require.NoError(t, err)
	require.NotZero(t, first.Seed)

	cfg.Seed = first.Seed
	replay, err := Run(context.Background(), cfg, runner, WithLogger(logging.Discard()))
	require.NoError(t, err)
	assert.Equal(t, first.Seed, replay.Seed)
	require.Len(t, replay.Stats, len(first.Stats))
	for i := range first.Stats {
		assert.Equal(t, first.Stats[i].TotalComparisons, replay.Stats[i].TotalComparisons)
		assert.Equal(t, first.Stats[i].MaxComparisons, replay.Stats[i].MaxComparisons)
	}
}

func TestRunStrictBoundCountsFailures(t *testing.T) {
	// n=5 存在需要 8 次比较的排列，上界为 7。
	runner := harness.New(harness.WithLogger(logging.Discard()), harness.WithStrictBound(true))
	cfg := config.BenchConfig{Sizes: []int{5}, Rounds: 200, Workers: 2, QueueSize: 4, Seed: 9}

	res, err := Run(context.Background(), cfg, runner, WithLogger(logging.Discard()))
	require.Error(t, err)
	assert.ErrorIs(t, err, xerrors.ErrBoundExceeded)

	s, ok := res.Stat(5, mergeinsert.BackingSlice)
	require.True(t, ok)
	assert.Equal(t, 200, s.Rounds)
	assert.Positive(t, s.Exceeded)
	assert.Equal(t, s.Exceeded, res.Failures)
	assert.Equal(t, 8, s.MaxComparisons)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	runner := harness.New(harness.WithLogger(logging.Discard()))
	cases := []config.BenchConfig{
		{Sizes: nil, Rounds: 1},
		{Sizes: []int{10, 0}, Rounds: 1},
		{Sizes: []int{10}, Rounds: 0},
	}
	for _, cfg := range cases {
		_, err := Run(context.Background(), cfg, runner)
		assert.ErrorIs(t, err, xerrors.ErrInvalidBenchSize)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := harness.New(harness.WithLogger(logging.Discard()))
	cfg := config.BenchConfig{Sizes: []int{50}, Rounds: 100, Workers: 1, QueueSize: 1, Seed: 1}
	res, err := Run(ctx, cfg, runner, WithLogger(logging.Discard()))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
}

func TestPermutation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	p := permutation(rng, 50)
	require.Len(t, p, 50)
	sorted := slices.Clone(p)
	slices.Sort(sorted)
	for i, v := range sorted {
		assert.Equal(t, uint32(i+1), v)
	}
}

func TestCollectSkipsDuplicateSizes(t *testing.T) {
	stats := map[statKey]*Stat{
		{size: 3, backing: mergeinsert.BackingSlice}: {Size: 3, Backing: mergeinsert.BackingSlice},
		{size: 3, backing: mergeinsert.BackingDeque}: {Size: 3, Backing: mergeinsert.BackingDeque},
	}
	out := collect(stats, []int{3, 3}, mergeinsert.Backings())
	assert.Len(t, out, 2)
}

func TestStatAverages(t *testing.T) {
	var s Stat
	assert.Zero(t, s.AvgComparisons())
	assert.Zero(t, s.AvgDuration())

	s.add(harness.Variant{Comparisons: 10, Duration: 4000, WithinBound: true})
	s.add(harness.Variant{Comparisons: 6, Duration: 2000, WithinBound: false})
	assert.Equal(t, 6, s.MinComparisons)
	assert.Equal(t, 10, s.MaxComparisons)
	assert.InDelta(t, 8, s.AvgComparisons(), 0)
	assert.EqualValues(t, 3000, s.AvgDuration())
	assert.Equal(t, 1, s.Exceeded)
}

func TestPrint(t *testing.T) {
	res := &Result{
		Seed: 7,
		Stats: []Stat{{
			Size: 21, Backing: mergeinsert.BackingDeque, Rounds: 2,
			MinComparisons: 60, MaxComparisons: 64, TotalComparisons: 124,
			Bound: 66, InformationBound: 66,
		}},
		Failures: 1,
		Stalls:   3,
	}
	var buf bytes.Buffer
	res.Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "seed: 7")
	assert.Contains(t, out, "deque")
	assert.Contains(t, out, "62.0")
	assert.Contains(t, out, "log2(n!)")
	assert.Contains(t, out, "failures: 1")
	assert.Contains(t, out, "stalls: 3")

	buf.Reset()
	(&Result{Seed: 1}).Print(&buf)
	assert.NotContains(t, buf.String(), "stalls:")
	assert.NotContains(t, buf.String(), "failures:")
}

func TestRunCountsStalls(t *testing.T) {
	runner := harness.New(harness.WithLogger(logging.Discard()))

	// 队列能容纳全部任务时提交从不等待。
	roomy := config.BenchConfig{Sizes: []int{5, 9}, Rounds: 10, Workers: 1, QueueSize: 20, Seed: 3}
	res, err := Run(context.Background(), roomy, runner, WithLogger(logging.Discard()))
	require.NoError(t, err)
	assert.Zero(t, res.Stalls)

	// 无缓冲队列与单个 worker：大输入排序期间的提交必然需要等待。
	tight := config.BenchConfig{Sizes: []int{3000}, Rounds: 6, Workers: 1, QueueSize: 0, Seed: 3}
	res, err = Run(context.Background(), tight, runner, WithLogger(logging.Discard()))
	require.NoError(t, err)
	assert.Positive(t, res.Stalls)
	assert.LessOrEqual(t, res.Stalls, 6)
	st, ok := res.Stat(3000, mergeinsert.BackingSlice)
	require.True(t, ok)
	assert.Equal(t, 6, st.Rounds)
}
