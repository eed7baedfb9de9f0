package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dugoutdata/dugout/internal/artifact"
	"github.com/dugoutdata/dugout/internal/collector"
	"github.com/dugoutdata/dugout/internal/config"
	"github.com/dugoutdata/dugout/internal/engine"
	"github.com/dugoutdata/dugout/internal/hashstore"
	"github.com/dugoutdata/dugout/internal/logger"
	"github.com/dugoutdata/dugout/internal/output"
	"github.com/dugoutdata/dugout/internal/runlog"
	"github.com/dugoutdata/dugout/internal/sentry"
)

var (
	version = "0.2.0"
	commit  = "release"
	date    = "2025-08-29"
)

var (
	cfg       *config.Config
	formatter *output.Formatter
	exitCode  int

	flagConfig  string
	flagVerbose bool
	flagQuiet   bool
	flagNoColor bool
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			if sentry.IsEnabled() {
				sentry.CaptureError(fmt.Errorf("panic: %v", r), "main", "panic_recovery")
				sentry.Flush(2 * time.Second)
			}
			fmt.Fprintf(os.Stderr, "dugout encountered a fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := &cobra.Command{
		Use:   "dugout",
		Short: "Incremental baseball data collector",
		Long: `Dugout keeps local JSON artifacts of baseball data in sync with their
remote sources. Every fetched record is hashed with volatile fields stripped
and compared against the previous run, so only units whose content actually
changed are rewritten.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(flagConfig)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logCfg := cfg.Log
			if flagVerbose {
				logCfg.Level = "debug"
			}
			if flagQuiet {
				logCfg.Level = "error"
			}
			if flagNoColor {
				logCfg.Color = false
			}
			if err := logger.Init(&logCfg); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}

			if err := sentry.Initialize(&cfg.Sentry, version); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to initialize error monitoring: %v\n", err)
			}

			formatter = output.NewFormatter(cfg.Output)
			formatter.SetFlags(flagVerbose, flagQuiet, flagNoColor)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(collectCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(purgeCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = 1
	}
	sentry.Close()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// collectors builds the collector set in dependency order: splits enumerates
// players from roster artifacts, so rosters must run first in the same batch.
func collectors(artifacts *artifact.Store, daysBack int) []collector.Collector {
	return []collector.Collector{
		collector.NewRosterCollector(cfg.Collection.Season, collector.Levels),
		collector.NewSplitsCollector(artifacts, cfg.Collection.Season),
		collector.NewBoxscoreCollector(daysBack),
	}
}

// selectCollectors filters the collector set by the --collector flag
func selectCollectors(all []collector.Collector, names []string) ([]collector.Collector, error) {
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]collector.Collector, len(all))
	for _, c := range all {
		byName[c.Name()] = c
	}

	selected := make([]collector.Collector, 0, len(names))
	for _, name := range names {
		c, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown collector %q (available: rosters, splits, boxscores)", name)
		}
		selected = append(selected, c)
	}
	return selected, nil
}

func collectCmd() *cobra.Command {
	var (
		force    bool
		workers  int
		profile  string
		delayMS  int
		names    []string
		daysBack int
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch remote data and update changed artifacts",
		Long: `Collect runs the sync cycle for each collector: enumerate units, fetch
each one, and persist only those whose content hash changed since the last
run. Interrupting with Ctrl-C stops dispatch of new units while in-flight
fetches finish cleanly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirs(); err != nil {
				return err
			}

			if profile == "" {
				profile = cfg.Collection.Profile
			}
			prof, err := engine.LookupProfile(profile)
			if err != nil {
				return err
			}

			opts := prof.Options(engine.BackoffPolicy{
				MaxRetries: cfg.Collection.MaxRetries,
				Base:       time.Duration(cfg.Collection.BackoffBaseMS) * time.Millisecond,
			})
			opts.FetchTimeout = time.Duration(cfg.Collection.TimeoutSeconds) * time.Second
			opts.Forced = force
			if cfg.Collection.MaxWorkers > 0 {
				opts.MaxConcurrency = cfg.Collection.MaxWorkers
			}
			if cfg.Collection.RequestDelayMS > 0 {
				opts.InterRequestDelay = time.Duration(cfg.Collection.RequestDelayMS) * time.Millisecond
			}
			if workers > 0 {
				opts.MaxConcurrency = workers
			}
			if delayMS >= 0 {
				opts.InterRequestDelay = time.Duration(delayMS) * time.Millisecond
			}

			artifacts := artifact.New(cfg.ArtifactDir())
			selected, err := selectCollectors(collectors(artifacts, daysBack), names)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runs, err := runlog.Open(cfg.RunLogPath(), cfg.RunLog.MaxEntries)
			if err != nil {
				formatter.Warningf("run history unavailable: %v", err)
			} else {
				defer runs.Close()
			}

			anyFailed := false
			for _, c := range selected {
				if ctx.Err() != nil {
					formatter.Warningf("collection interrupted, skipping %s", c.Name())
					break
				}

				units, err := c.Units(ctx)
				if err != nil {
					formatter.Errorf("%s: %v", c.Name(), err)
					sentry.CaptureError(err, c.Name(), "enumerate_units")
					anyFailed = true
					continue
				}

				formatter.Println("Collecting %s (%d units, profile %s, %d workers)",
					c.Name(), len(units), prof.Name, opts.MaxConcurrency)

				runOpts := opts
				runOpts.VolatileFields = c.VolatileFields()
				runOpts.OnProgress = formatter.Progress

				pool := engine.NewPool(
					hashstore.New(cfg.HashDir(), c.Name()),
					artifacts,
					c.ArtifactPath,
				)

				outcome, err := pool.Run(ctx, units, c.Fetch, runOpts)
				formatter.ProgressDone()
				if err != nil {
					formatter.Errorf("%s: %v", c.Name(), err)
					sentry.CaptureError(err, c.Name(), "run_batch")
					anyFailed = true
					continue
				}

				formatter.Summary(c.Name(), outcome)
				if outcome.Failed > 0 {
					anyFailed = true
				}

				if runs != nil {
					rec := runlog.Run{
						ID:         uuid.New().String(),
						Collector:  c.Name(),
						StartedAt:  outcome.Started,
						FinishedAt: outcome.Finished,
						Updated:    outcome.Updated,
						Skipped:    outcome.Skipped,
						Failed:     outcome.Failed,
						Cancelled:  outcome.Cancelled,
					}
					if err := runs.Record(rec); err != nil {
						formatter.Warningf("failed to record run: %v", err)
					}
				}
			}

			if anyFailed {
				// Partial success still exits nonzero so schedulers notice
				exitCode = 1
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "update every unit regardless of stored hashes")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "override worker count")
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "performance profile (stealth, conservative, balanced, aggressive)")
	cmd.Flags().IntVar(&delayMS, "delay", -1, "override inter-request delay in milliseconds")
	cmd.Flags().StringSliceVarP(&names, "collector", "c", nil, "run only the named collectors")
	cmd.Flags().IntVar(&daysBack, "days-back", 3, "number of past days of box scores to sync")

	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what has been collected and when",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, namespace := range []string{"rosters", "splits", "boxscores"} {
				store := hashstore.New(cfg.HashDir(), namespace)
				records, err := store.List()
				if err != nil {
					return fmt.Errorf("failed to read %s state: %w", namespace, err)
				}
				formatter.Status(namespace, records)
			}
			return nil
		},
	}
}

func purgeCmd() *cobra.Command {
	var olderThanHours int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove stale hash sidecars so old units re-fetch on the next run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThanHours <= 0 {
				olderThanHours = cfg.Cleanup.MaxHashAgeHours
			}
			maxAge := time.Duration(olderThanHours) * time.Hour

			total := 0
			for _, namespace := range []string{"rosters", "splits", "boxscores"} {
				store := hashstore.New(cfg.HashDir(), namespace)
				removed, err := store.PurgeOlderThan(maxAge)
				if err != nil {
					return fmt.Errorf("failed to purge %s: %w", namespace, err)
				}
				if removed > 0 {
					formatter.Verbose("%s: removed %d stale sidecars", namespace, removed)
				}
				total += removed
			}

			formatter.Println("Removed %d sidecars older than %s", total, maxAge)
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThanHours, "older-than", 0, "age threshold in hours (default from config)")
	return cmd
}

func runsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent collection run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := runlog.Open(cfg.RunLogPath(), cfg.RunLog.MaxEntries)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(limit)
			if err != nil {
				return err
			}
			formatter.Runs(runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to show")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dugout %s (%s, %s)\n", version, commit, date)
		},
	}
}
