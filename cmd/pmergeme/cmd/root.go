// Package cmd 定义 pmergeme 命令行：根命令对参数排序，bench 子命令做随机压测。
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/pmergeme/algorithm/mergeinsert"
	"github.com/wyfcoding/pmergeme/argparse"
	"github.com/wyfcoding/pmergeme/bootstrap"
	"github.com/wyfcoding/pmergeme/config"
	"github.com/wyfcoding/pmergeme/harness"
	"github.com/wyfcoding/pmergeme/logging"
	"github.com/wyfcoding/pmergeme/xerrors"
)

const serviceName = "pmergeme"

// version 由构建时 -ldflags "-X .../cmd.version=..." 注入。
var version = "0.1.0"

// rootOptions 是所有子命令共享的全局参数。
type rootOptions struct {
	configPath  string
	logLevel    string
	backings    []string
	preview     int
	comparisons bool
	strictBound bool
}

// overrides 把显式设置过的命令行参数覆盖到配置上。
func (o *rootOptions) overrides(cmd *cobra.Command) func(*config.Config) {
	flags := cmd.Flags()
	return func(c *config.Config) {
		if flags.Changed("log-level") {
			c.Log.Level = o.logLevel
		}
		if flags.Changed("backing") {
			c.Sort.Backings = o.backings
		}
		if flags.Changed("preview") {
			c.Sort.Preview = o.preview
		}
		if flags.Changed("comparisons") {
			c.Sort.ShowComparisons = o.comparisons
		}
		if flags.Changed("strict-bound") {
			c.Sort.StrictBound = o.strictBound
		}
	}
}

// boot 初始化基础设施。调用方负责 Shutdown。
func (o *rootOptions) boot(ctx context.Context, cmd *cobra.Command) (*bootstrap.Bootstrapper, error) {
	b := bootstrap.New(serviceName, version)
	b.LogWriter = cmd.ErrOrStderr()
	if err := b.Initialize(o.configPath, o.overrides(cmd)); err != nil {
		return nil, err
	}
	b.SetupTracing(ctx)
	b.SetupMetrics()
	if _, err := b.SetupIDGenerator(); err != nil {
		b.Shutdown()
		return nil, err
	}
	return b, nil
}

// newRunner 按配置创建排序执行器。
func newRunner(b *bootstrap.Bootstrapper) (*harness.Runner, error) {
	backings, err := mergeinsert.ParseBackings(b.Config.Sort.Backings)
	if err != nil {
		return nil, err
	}
	return harness.New(
		harness.WithBackings(backings...),
		harness.WithMetrics(b.Metrics),
		harness.WithLogger(b.Logger.Logger),
		harness.WithIDGenerator(b.IDs),
		harness.WithStrictBound(b.Config.Sort.StrictBound),
	), nil
}

// NewRootCmd 创建根命令。
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:   "pmergeme [flags] N...",
		Short: "Sorts positive integers with Ford-Johnson merge-insertion",
		Long: `Sorts the given positive integers with the Ford-Johnson merge-insertion
algorithm on every configured chain backing, checks that all backings agree,
and reports timings and comparison counts.
For example:
	pmergeme 3 5 9 7 4
	pmergeme --comparisons $(shuf -i 1-1000 -n 21)`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd, o, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "path to a TOML config file")
	pf.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringSliceVar(&o.backings, "backing", []string{"slice", "deque"}, "chain backings to run (repeatable)")
	pf.BoolVar(&o.strictBound, "strict-bound", false, "fail when a sort exceeds the Ford-Johnson comparison bound")

	root.Flags().IntVar(&o.preview, "preview", 10, "elements shown on the Before/After lines, 0 for all")
	root.Flags().BoolVar(&o.comparisons, "comparisons", false, "print comparison counts and bounds")

	root.AddCommand(newBenchCmd(o), newVersionCmd())
	return root
}

func runSort(cmd *cobra.Command, o *rootOptions, args []string) error {
	input, err := argparse.ParseArgs(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := o.boot(ctx, cmd)
	if err != nil {
		return err
	}
	defer b.Shutdown()

	runner, err := newRunner(b)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	limit := b.Config.Sort.Preview
	fmt.Fprintln(out, formatPreview("Before: ", input, limit))

	report, err := runner.Run(ctx, input)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, formatPreview("After: ", report.Sorted(), limit))
	printTimings(out, report)
	if b.Config.Sort.ShowComparisons {
		printComparisons(out, report)
	}
	return nil
}

// Execute 运行命令行并返回进程退出码。
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, NewRootCmd(), os.Args[1:], os.Stdout, os.Stderr)
}

// execute 对外只输出 "Error"，错误详情写入日志。
func execute(ctx context.Context, root *cobra.Command, args []string, stdout, stderr io.Writer) int {
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		logging.Debug(ctx, "command failed", "error", err)
		fmt.Fprintln(stderr, "Error")
		return xerrors.ExitCodeOf(err)
	}
	return xerrors.ExitOK
}
