package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/datallboy/segfetch/internal/assembler"
	"github.com/datallboy/segfetch/internal/domain"
	"github.com/datallboy/segfetch/internal/engine"
	"github.com/datallboy/segfetch/internal/infra/config"
	"github.com/datallboy/segfetch/internal/infra/logger"
	"github.com/datallboy/segfetch/internal/platform"
	"github.com/datallboy/segfetch/internal/source"
)

func newFetchCmd() *cobra.Command {
	var (
		start   int
		stop    int
		out     string
		outDir  string
		workers int
		balance string
		mode    string
	)

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Discover, download and reassemble a segmented stream",
		Long: `Fetch downloads every segment of a stream whose URL contains a segment
index, either as the literal {index} or as digits directly before the
extension (seg-17.ts). Segments already on disk are skipped, so an
interrupted fetch can be re-run to resume.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				cfg.Source.URL = args[0]
			}
			flags := cmd.Flags()
			if flags.Changed("start") {
				cfg.Download.Start = start
			}
			if flags.Changed("stop") {
				cfg.Download.Stop = stop
			}
			if flags.Changed("out") {
				cfg.Download.Output = out
			}
			if flags.Changed("out-dir") {
				cfg.Download.OutDir = outDir
			}
			if flags.Changed("workers") {
				cfg.Download.MaxWorkers = workers
			}
			if flags.Changed("balance") {
				cfg.Download.Balance = balance
			}
			if flags.Changed("reassemble") {
				cfg.Download.Reassemble = mode
			}
			if err := cfg.Validate(); err != nil {
				cmd.PrintErrf("Config error: %v\n", err)
				return err
			}

			run, err := cfg.RunConfig()
			if err != nil {
				cmd.PrintErrf("Config error: %v\n", err)
				return err
			}

			appCtx, cleanup, err := bootstrap(cfg)
			if err != nil {
				cmd.PrintErrf("Startup error: %v\n", err)
				return err
			}
			defer cleanup()

			client := source.NewClient(source.Options{
				Timeout:     cfg.Source.Timeout,
				ProbeMethod: source.ProbeMethod(cfg.Probe.Method),
				UserAgent:   cfg.Source.UserAgent,
			})

			d := engine.NewDownloader(appCtx, client, engine.NewReassembler(cfg.Download.Reassemble))

			res, err := d.Run(cmd.Context(), run)
			if err != nil {
				reportRunError(appCtx.Logger, res, err)
				return err
			}

			appCtx.Logger.Info("Run %s finished: %d segment(s) in [%d:%d)", res.ID, res.Range.Len(), res.Range.Start, res.Range.Stop)

			if cfg.Download.Reassemble == config.ReassembleList {
				listPath := assembler.ConcatList{}.ListPath(run.Output)
				if muxer, err := platform.FindMuxer(); err == nil {
					appCtx.Logger.Info("Concat list written. To mux: %s", platform.MuxCommand(muxer, listPath, run.Output))
				} else {
					appCtx.Logger.Info("Concat list written to %s (%v)", listPath, err)
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&start, "start", 0, "first segment index")
	f.IntVar(&stop, "stop", 0, "exclusive last index (0 = discover)")
	f.StringVarP(&out, "out", "o", "out.mp4", "output file name")
	f.StringVar(&outDir, "out-dir", "", "segment directory (default: directory of --out)")
	f.IntVarP(&workers, "workers", "w", 30, "max parallel workers")
	f.StringVar(&balance, "balance", string(domain.BalanceRemainderLast), "remainder placement: last or spread")
	f.StringVar(&mode, "reassemble", "concat", "reassembly: concat, list or none")

	return cmd
}

// reportRunError logs a failed run. Partial failures get a resume hint.
func reportRunError(log *logger.Logger, res *engine.RunResult, err error) {
	var partial *domain.PartialFailureError
	if errors.As(err, &partial) {
		id := "(unrecorded)"
		if res != nil {
			id = res.ID
		}
		log.Error("Run %s incomplete: %v. Re-run the same command to retry the missing segments.", id, err)
		return
	}
	log.Error("Fetch failed: %v", err)
}
