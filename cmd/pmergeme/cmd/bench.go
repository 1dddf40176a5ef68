package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wyfcoding/pmergeme/bench"
	"github.com/wyfcoding/pmergeme/config"
	"github.com/wyfcoding/pmergeme/xerrors"
)

type benchOptions struct {
	sizes   []int
	rounds  int
	workers int
	seed    uint64
	watch   bool
}

// apply 把显式设置过的压测参数覆盖到配置上。
func (o *benchOptions) apply(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("sizes") {
		c.Bench.Sizes = o.sizes
	}
	if flags.Changed("rounds") {
		c.Bench.Rounds = o.rounds
	}
	if flags.Changed("workers") {
		c.Bench.Workers = o.workers
	}
	if flags.Changed("seed") {
		c.Bench.Seed = o.seed
	}
}

func newBenchCmd(root *rootOptions) *cobra.Command {
	o := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Sorts random permutations and reports comparison statistics",
		Long: `Generates random permutations of 1..n for every configured size, sorts each
one on every chain backing through a worker pool, and prints min/avg/max
comparison counts next to the Ford-Johnson bound and log2(n!).
For example:
	pmergeme bench --sizes 21,100,3000 --rounds 20 --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, root, o)
		},
	}

	f := cmd.Flags()
	f.IntSliceVar(&o.sizes, "sizes", nil, "input sizes to benchmark")
	f.IntVar(&o.rounds, "rounds", 0, "random permutations per size")
	f.IntVar(&o.workers, "workers", 0, "concurrent workers")
	f.Uint64Var(&o.seed, "seed", 0, "random seed (>= 1); 0 picks one from the clock and prints it, rerun with that value to replay")
	f.BoolVar(&o.watch, "watch", false, "reload the log level when the config file changes")
	return cmd
}

func runBench(cmd *cobra.Command, root *rootOptions, o *benchOptions) error {
	ctx := cmd.Context()
	b, err := root.boot(ctx, cmd)
	if err != nil {
		return err
	}
	defer b.Shutdown()

	cfg := b.Config
	o.apply(cmd, &cfg)
	if err := config.Validate(&cfg); err != nil {
		return xerrors.ErrInvalidConfig.Copy().WithCause(err)
	}

	if o.watch && root.configPath != "" {
		err := config.Watch(root.configPath, func(next *config.Config) {
			b.Logger.InfoContext(ctx, "bench config reloaded", "log_level", next.Log.Level)
		})
		if err != nil {
			return err
		}
	}

	runner, err := newRunner(b)
	if err != nil {
		return err
	}

	res, err := bench.Run(ctx, cfg.Bench, runner,
		bench.WithLogger(b.Logger.Logger),
		bench.WithMetrics(b.Metrics),
	)
	if res != nil {
		res.Print(cmd.OutOrStdout())
	}
	return err
}
