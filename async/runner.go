// Package async 提供带 panic 恢复的 goroutine 启动工具。
package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// ErrPanicRecovered 表示异步任务中恢复的 panic。
var ErrPanicRecovered = errors.New("async task panic recovered")

// Runner 定义了安全的并发执行器接口。
type Runner interface {
	// Go 安全地启动一个 goroutine，自动处理 panic。
	Go(fn func())
	// GoWithContext 安全地启动一个 goroutine，并注入 context。
	GoWithContext(ctx context.Context, fn func(ctx context.Context))
}

type defaultRunner struct {
	logger *slog.Logger
}

// NewRunner 创建一个使用指定 logger 记录 panic 的执行器，logger 为 nil 时在记录时取 slog.Default()。
func NewRunner(logger *slog.Logger) Runner {
	return &defaultRunner{logger: logger}
}

// DefaultRunner 是默认的安全执行器。
var DefaultRunner = NewRunner(nil)

func (r *defaultRunner) Go(fn func()) {
	go func() {
		defer r.handlePanic()
		fn()
	}()
}

func (r *defaultRunner) GoWithContext(ctx context.Context, fn func(ctx context.Context)) {
	go func() {
		defer r.handlePanic()
		fn(ctx)
	}()
}

func (r *defaultRunner) handlePanic() {
	if rec := recover(); rec != nil {
		err := fmt.Errorf("%w: %v", ErrPanicRecovered, rec)
		logger := r.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("async task panic recovered", "error", err, "stack", string(debug.Stack()))
	}
}

// SafeGo 是 DefaultRunner.Go 的快捷方式。
func SafeGo(fn func()) {
	DefaultRunner.Go(fn)
}
