// Package bootstrap 负责命令行进程的基础设施初始化：配置、日志、指标、追踪与运行 ID。
package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/wyfcoding/pmergeme/config"
	"github.com/wyfcoding/pmergeme/idgen"
	"github.com/wyfcoding/pmergeme/logging"
	"github.com/wyfcoding/pmergeme/metrics"
	"github.com/wyfcoding/pmergeme/tracing"
	"github.com/wyfcoding/pmergeme/xerrors"
)

// Bootstrapper 持有初始化后的基础设施，Shutdown 按初始化的逆序释放资源。
type Bootstrapper struct {
	ServiceName string
	Version     string
	Config      config.Config
	Logger      *logging.Logger
	Metrics     *metrics.Metrics
	IDs         idgen.Generator

	// LogWriter 在未配置日志文件时接收日志，默认 os.Stderr，避免与标准输出的排序结果混在一起。
	LogWriter io.Writer

	cleanups []func()
}

// New 创建一个新的引导器实例
func New(serviceName, version string) *Bootstrapper {
	return &Bootstrapper{
		ServiceName: serviceName,
		Version:     version,
		LogWriter:   os.Stderr,
	}
}

// Initialize 加载配置文件（path 为空时使用默认配置与环境变量），依次应用 overrides 后重新校验，
// 然后按配置初始化日志。
func (b *Bootstrapper) Initialize(path string, overrides ...func(*config.Config)) error {
	cfg := config.Default()
	if err := config.Load(path, &cfg); err != nil {
		return xerrors.ErrInvalidConfig.Copy().WithCause(err).WithContext("path", path)
	}
	for _, override := range overrides {
		override(&cfg)
	}
	if err := config.Validate(&cfg); err != nil {
		return xerrors.ErrInvalidConfig.Copy().WithCause(err)
	}
	if cfg.Version == "" || cfg.Version == "dev" {
		cfg.Version = b.Version
	}
	b.Config = cfg

	logCfg := logging.Config{
		Service:    b.ServiceName,
		Module:     "cli",
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
		Console:    cfg.Log.Console,
	}
	if cfg.Log.File == "" {
		logCfg.Writer = b.LogWriter
	}
	b.Logger = logging.NewFromConfig(logCfg)
	slog.SetDefault(b.Logger.Logger)

	config.PrintWithMask(cfg)
	return nil
}

// SetupMetrics 创建指标注册表并登记构建信息；启用时通过 HTTP 暴露。
func (b *Bootstrapper) SetupMetrics() *metrics.Metrics {
	b.Metrics = metrics.NewMetrics(b.ServiceName)
	b.Metrics.RegisterBuildInfo(b.ServiceName, b.Config.Version)
	if b.Config.Metrics.Enabled {
		b.cleanups = append(b.cleanups, b.Metrics.ExposeHttp(b.Config.Metrics.Port))
	}
	return b.Metrics
}

// SetupTracing 初始化 OpenTelemetry 追踪器。初始化失败只记录日志，不影响排序。
func (b *Bootstrapper) SetupTracing(ctx context.Context) {
	shutdown, err := tracing.InitTracer(ctx, b.Config.Tracing)
	if err != nil {
		b.Logger.Error("failed to init tracer", "error", err)
		return
	}
	b.cleanups = append(b.cleanups, func() {
		if err := shutdown(context.Background()); err != nil {
			b.Logger.Error("failed to shutdown tracer", "error", err)
		}
	})
}

// SetupIDGenerator 按配置创建运行 ID 生成器。
func (b *Bootstrapper) SetupIDGenerator() (idgen.Generator, error) {
	g, err := idgen.NewGenerator(b.Config.RunID)
	if err != nil {
		return nil, xerrors.ErrInvalidConfig.Copy().WithCause(err).WithContext("section", "runid")
	}
	b.IDs = g
	return g, nil
}

// Shutdown 释放所有已初始化的资源。可重复调用。
func (b *Bootstrapper) Shutdown() {
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		b.cleanups[i]()
	}
	b.cleanups = nil
}
