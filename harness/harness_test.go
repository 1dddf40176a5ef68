package harness

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/wyfcoding/pmergeme/algorithm/mergeinsert"
	"github.com/wyfcoding/pmergeme/logging"
	"github.com/wyfcoding/pmergeme/metrics"
	"github.com/wyfcoding/pmergeme/xerrors"
)

var articleInput = []uint32{11, 2, 17, 16, 8, 6, 15, 10, 3, 21, 1, 18, 9, 14, 19, 12, 5, 4, 20, 13, 7}

type fixedIDs int64

func (f fixedIDs) Generate() int64 { return int64(f) }

func TestRunReportsBothBackings(t *testing.T) {
	m := metrics.NewMetrics("test")
	r := New(WithMetrics(m), WithLogger(logging.Discard()), WithIDGenerator(fixedIDs(77)))

	report, err := r.Run(context.Background(), []uint32{3, 5, 9, 7, 4})
	require.NoError(t, err)

	assert.Equal(t, "R77", report.RunID)
	assert.Equal(t, 5, report.Size)
	assert.Equal(t, int64(4), report.Inversions)
	assert.Equal(t, 7, report.MaxComparisons)
	assert.Equal(t, 7, report.InformationBound)
	assert.Equal(t, []uint32{3, 4, 5, 7, 9}, report.Sorted())

	require.Len(t, report.Variants, 2)
	assert.Equal(t, mergeinsert.BackingSlice, report.Variants[0].Backing)
	assert.Equal(t, mergeinsert.BackingDeque, report.Variants[1].Backing)
	for _, v := range report.Variants {
		assert.Equal(t, 7, v.Comparisons)
		assert.True(t, v.WithinBound)
	}

	assert.InDelta(t, 1, testutil.ToFloat64(m.SortsTotal.WithLabelValues("slice")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SortsTotal.WithLabelValues("deque")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.MismatchTotal), 0)
}

func TestRunKeepsConfiguredBackingOrder(t *testing.T) {
	r := New(WithBackings(mergeinsert.BackingDeque, mergeinsert.BackingSlice), WithLogger(logging.Discard()))
	for range 20 {
		report, err := r.Run(context.Background(), articleInput)
		require.NoError(t, err)
		require.Len(t, report.Variants, 2)
		assert.Equal(t, mergeinsert.BackingDeque, report.Variants[0].Backing)
		assert.Equal(t, mergeinsert.BackingSlice, report.Variants[1].Backing)
	}
}

func TestRunSingleBacking(t *testing.T) {
	r := New(WithBackings(mergeinsert.BackingDeque), WithLogger(logging.Discard()))
	assert.Equal(t, []mergeinsert.Backing{mergeinsert.BackingDeque}, r.Backings())

	report, err := r.Run(context.Background(), []uint32{2, 1})
	require.NoError(t, err)
	require.Len(t, report.Variants, 1)

	v, ok := report.Variant(mergeinsert.BackingDeque)
	require.True(t, ok)
	assert.Equal(t, 1, v.Comparisons)

	_, ok = report.Variant(mergeinsert.BackingSlice)
	assert.False(t, ok)
}

func TestRunBoundPolicy(t *testing.T) {
	// 21 个元素的示例序列需要 67 次比较，上界 F(21)=66。
	m := metrics.NewMetrics("test")
	lenient := New(WithMetrics(m), WithLogger(logging.Discard()))
	report, err := lenient.Run(context.Background(), articleInput)
	require.NoError(t, err)
	assert.Equal(t, 66, report.MaxComparisons)
	assert.Equal(t, 66, report.InformationBound)
	for _, v := range report.Variants {
		assert.Equal(t, 67, v.Comparisons)
		assert.False(t, v.WithinBound)
	}
	assert.InDelta(t, 1, testutil.ToFloat64(m.BoundExceededTotal.WithLabelValues("slice")), 0)

	strict := New(WithStrictBound(true), WithLogger(logging.Discard()))
	report, err = strict.Run(context.Background(), articleInput)
	require.Error(t, err)
	assert.ErrorIs(t, err, xerrors.ErrBoundExceeded)
	assert.Equal(t, xerrors.ExitInternal, xerrors.ExitCodeOf(err))
	// 出错时仍返回报告。
	require.NotNil(t, report)
	assert.Len(t, report.Sorted(), 21)
}

func TestRunDetectsMismatch(t *testing.T) {
	m := metrics.NewMetrics("test")
	r := New(WithMetrics(m), WithLogger(logging.Discard()))
	r.sort = func(input []uint32, b mergeinsert.Backing) mergeinsert.Result[uint32] {
		res := defaultSort(input, b)
		if b == mergeinsert.BackingDeque {
			res.Sorted[len(res.Sorted)-1]++
		}
		return res
	}

	_, err := r.Run(context.Background(), []uint32{4, 2, 3, 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, xerrors.ErrResultMismatch)
	assert.InDelta(t, 1, testutil.ToFloat64(m.MismatchTotal), 0)

	var xe *xerrors.Error
	require.True(t, errors.As(err, &xe))
	assert.Equal(t, "slice", xe.Context["left"])
	assert.Equal(t, "deque", xe.Context["right"])
}

func TestRunDetectsUnsortedOutput(t *testing.T) {
	r := New(WithLogger(logging.Discard()))
	r.sort = func(input []uint32, b mergeinsert.Backing) mergeinsert.Result[uint32] {
		out := slices.Clone(input)
		return mergeinsert.Result[uint32]{Sorted: out, Backing: b}
	}
	_, err := r.Run(context.Background(), []uint32{2, 1})
	assert.ErrorIs(t, err, xerrors.ErrNotSorted)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithLogger(logging.Discard())).Run(ctx, articleInput)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunEmptyInput(t *testing.T) {
	report, err := New(WithLogger(logging.Discard())).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Sorted())
	assert.Zero(t, report.MaxComparisons)
	assert.Empty(t, report.RunID)
}

func TestRunLogsCarryRunContext(t *testing.T) {
	var buf bytes.Buffer
	l := logging.NewFromConfig(logging.Config{Level: "warn", Writer: &buf})
	t.Cleanup(func() { logging.SetLevel("info") })

	_, err := New(WithLogger(l.Logger), WithIDGenerator(fixedIDs(5)), WithBackings(mergeinsert.BackingSlice)).
		Run(context.Background(), articleInput)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"comparison count above Ford-Johnson bound"`)
	assert.Contains(t, out, `"run_id":"R5"`)
	assert.Contains(t, out, `"size":21`)
	assert.Contains(t, out, `"bound":66`)
}

func TestRunRecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	r := New(WithLogger(logging.Discard()), WithIDGenerator(fixedIDs(5)))
	_, err := r.Run(context.Background(), articleInput)
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "pmergeme.sort", got.Name)

	attrs := map[string]string{}
	for _, kv := range got.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "R5", attrs["pmergeme.run_id"])
	assert.Equal(t, "21", attrs["pmergeme.input.size"])
	assert.Equal(t, "66", attrs["pmergeme.bound"])
	assert.Equal(t, "67", attrs["comparisons.slice"])
	assert.Equal(t, "67", attrs["comparisons.deque"])

	require.Len(t, got.Events, 2)
	for _, ev := range got.Events {
		assert.Equal(t, "variant sorted", ev.Name)
	}
}
