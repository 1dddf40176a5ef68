package async

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunnerRecoversPanic(t *testing.T) {
	var out syncBuffer
	r := NewRunner(slog.New(slog.NewJSONHandler(&out, nil)))

	r.Go(func() { panic("sort exploded") })

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("sort exploded"))
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "async task panic recovered")
}

func TestGoWithContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, 42)

	got := make(chan any, 1)
	NewRunner(nil).GoWithContext(ctx, func(ctx context.Context) {
		got <- ctx.Value(key{})
	})

	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(2 * time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestSafeGo(t *testing.T) {
	done := make(chan struct{})
	SafeGo(func() {
		defer close(done)
		panic("ignored")
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SafeGo did not run")
	}
}
