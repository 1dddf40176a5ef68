// Package worker 提供固定大小、有界队列的任务池，压测时用于并发执行排序任务。
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wyfcoding/pmergeme/async"
	"github.com/wyfcoding/pmergeme/metrics"
)

var (
	ErrPoolClosed = errors.New("worker pool is closed")
	ErrPoolFull   = errors.New("worker pool is full")
)

// Task 是 worker 执行的任务函数。ctx 为创建池时传入的上下文。
type Task func(ctx context.Context)

// Pool 是一个通用的 worker 池。
type Pool struct {
	ctx     context.Context
	tasks   chan Task
	options *poolOptions
	metrics *workerMetrics
	wg      sync.WaitGroup
	mu      sync.RWMutex // 保护 tasks 通道的关闭与发送
	closed  bool
	active  atomic.Int32 // 当前活跃的 worker 数量
	done    atomic.Int64 // 已完成的任务数
	panics  atomic.Int64 // 恢复的 panic 数
}

type workerMetrics struct {
	activeWorkers prometheus.Gauge
	queueLength   prometheus.Gauge
	tasksTotal    prometheus.Counter
}

type poolOptions struct {
	Logger       *slog.Logger
	PanicHandler func(any)
	Metrics      *metrics.Metrics
	Name         string
	Size         int
	QueueSize    int
}

// Option 定义配置选项。
type Option func(*poolOptions)

// WithName 设置池名称。
func WithName(name string) Option {
	return func(o *poolOptions) {
		o.Name = name
	}
}

// WithSize 设置 worker 数量。
func WithSize(size int) Option {
	return func(o *poolOptions) {
		if size > 0 {
			o.Size = size
		}
	}
}

// WithQueueSize 设置任务队列大小。
func WithQueueSize(size int) Option {
	return func(o *poolOptions) {
		if size >= 0 {
			o.QueueSize = size
		}
	}
}

// WithPanicHandler 设置 Panic 处理回调。
func WithPanicHandler(handler func(any)) Option {
	return func(o *poolOptions) {
		o.PanicHandler = handler
	}
}

// WithMetrics 注入指标采集器.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *poolOptions) {
		o.Metrics = m
	}
}

// WithLogger 设置日志记录器.
func WithLogger(l *slog.Logger) Option {
	return func(o *poolOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

// NewPool 创建并启动一个新的 worker 池。
func NewPool(ctx context.Context, opts ...Option) *Pool {
	options := &poolOptions{
		Name:      "default-pool",
		Size:      4,
		QueueSize: 64,
		Logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	p := &Pool{
		ctx:     ctx,
		tasks:   make(chan Task, options.QueueSize),
		options: options,
	}

	if options.Metrics != nil {
		labels := prometheus.Labels{"pool": options.Name}
		p.metrics = &workerMetrics{
			activeWorkers: options.Metrics.NewGauge(&prometheus.GaugeOpts{
				Namespace:   "pmergeme",
				Name:        "worker_pool_active_workers",
				Help:        "Number of active workers in the pool",
				ConstLabels: labels,
			}),
			queueLength: options.Metrics.NewGauge(&prometheus.GaugeOpts{
				Namespace:   "pmergeme",
				Name:        "worker_pool_queue_length",
				Help:        "Current length of the task queue",
				ConstLabels: labels,
			}),
			tasksTotal: options.Metrics.NewCounter(&prometheus.CounterOpts{
				Namespace:   "pmergeme",
				Name:        "worker_pool_tasks_total",
				Help:        "Tasks executed by the pool",
				ConstLabels: labels,
			}),
		}
	}

	p.start()
	return p
}

func (p *Pool) start() {
	p.options.Logger.Debug("worker pool starting", "name", p.options.Name, "size", p.options.Size)
	runner := async.NewRunner(p.options.Logger)
	for range p.options.Size {
		p.wg.Add(1)
		p.active.Add(1)
		if p.metrics != nil {
			p.metrics.activeWorkers.Inc()
		}
		runner.GoWithContext(p.ctx, func(ctx context.Context) {
			defer p.wg.Done()
			defer func() {
				p.active.Add(-1)
				if p.metrics != nil {
					p.metrics.activeWorkers.Dec()
				}
			}()
			p.runWorker(ctx)
		})
	}
}

// runWorker 持续消费任务直到通道关闭并被排空。
func (p *Pool) runWorker(ctx context.Context) {
	for task := range p.tasks {
		if p.metrics != nil {
			p.metrics.queueLength.Set(float64(len(p.tasks)))
		}
		p.executeTask(ctx, task)
	}
}

func (p *Pool) executeTask(ctx context.Context, task Task) {
	defer func() {
		p.done.Add(1)
		if p.metrics != nil {
			p.metrics.tasksTotal.Inc()
		}
		if r := recover(); r != nil {
			p.panics.Add(1)
			if p.options.PanicHandler != nil {
				p.options.PanicHandler(r)
			} else {
				p.options.Logger.Error("worker task panic recovered", "pool", p.options.Name, "panic", r)
			}
		}
	}()
	task(ctx)
}

// Submit 提交一个任务。队列已满时阻塞，直到有空位、ctx 取消或池被关闭。
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit 尝试提交一个任务。如果池已满，立即返回 ErrPoolFull。
func (p *Pool) TrySubmit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// Close 停止接收新任务，等待队列中已提交的任务全部执行完毕。可重复调用。
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.options.Logger.Debug("worker pool stopped", "name", p.options.Name, "done", p.done.Load(), "panics", p.panics.Load())
}

// Completed 返回已执行完成（含 panic）的任务数。
func (p *Pool) Completed() int64 {
	return p.done.Load()
}

// Panics 返回恢复的 panic 数。
func (p *Pool) Panics() int64 {
	return p.panics.Load()
}

// Active 返回当前存活的 worker 数。
func (p *Pool) Active() int {
	return int(p.active.Load())
}
