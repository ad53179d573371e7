// Package main provides the CLI entry point for storebench, a benchmark
// suite comparing query/insert performance across storage backends.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/storebench/storebench/backend"
	"github.com/storebench/storebench/backend/badgerdb"
	"github.com/storebench/storebench/backend/memory"
	"github.com/storebench/storebench/backend/sqlite"
	"github.com/storebench/storebench/report"
	"github.com/storebench/storebench/runner"
	"github.com/storebench/storebench/workload"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Error("benchmark failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "storebench",
		Short: "Storage backend benchmark suite",
		Long: `Storebench measures query and insert performance of interchangeable
storage backends under three standardized workloads: growth scalability,
sustained-load sampling, and substring search.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newGenerateCmd(logger))

	return root
}

const (
	testScalability = "scalability"
	testLoad        = "load"
	testSubstring   = "substring"
	testAll         = "all"
)

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		db         string
		test       string
		dataFile   string
		maxRecords int
		batchSize  int
		iterations int
		warmup     int
		minBatch   int
		maxBatch   int
		patterns   []string
		teardown   bool
		resultsDir string
		dbDir      string
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run benchmarks against a storage backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch test {
			case testScalability, testLoad, testSubstring, testAll:
			default:
				return fmt.Errorf("unknown test %q (want scalability|load|substring|all)", test)
			}

			b, err := openBackend(db, dbDir)
			if err != nil {
				return err
			}

			return runBenchmark(cmd.Context(), logger, b, benchConfig{
				test:       test,
				teardown:   teardown,
				resultsDir: resultsDir,
				runner: runner.Config{
					DataFile:          dataFile,
					MaxRecords:        maxRecords,
					BatchSize:         batchSize,
					Iterations:        iterations,
					MinBatchSize:      minBatch,
					MaxBatchSize:      maxBatch,
					WarmupIterations:  warmup,
					SubstringPatterns: patterns,
					Seed:              seed,
				},
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&db, "db", "", "Backend to benchmark: memory, badger, sqlite")
	flags.StringVar(&test, "test", testAll, "Test to run: scalability, load, substring, all")
	flags.StringVar(&dataFile, "data-file", "", "Path to JSON dataset file")
	flags.IntVar(&maxRecords, "max-records", 0, "Maximum records to use (0 = all)")
	flags.IntVar(&batchSize, "batch-size", 1000, "Insert batch size for the scalability test")
	flags.IntVar(&iterations, "iterations", 1000, "Load test iterations")
	flags.IntVar(&warmup, "warmup", 100, "Warmup iterations before the load test")
	flags.IntVar(&minBatch, "min-batch", 20, "Minimum query batch size for the load test")
	flags.IntVar(&maxBatch, "max-batch", 30, "Maximum query batch size for the load test")
	flags.StringSliceVar(&patterns, "patterns", nil, "Substring search patterns (default: built-in list)")
	flags.BoolVar(&teardown, "teardown", true, "Tear down schema and data after the run")
	flags.StringVar(&resultsDir, "results-dir", "results", "Directory for result CSV files")
	flags.StringVar(&dbDir, "db-dir", "tmp", "Base directory for embedded backend data")
	flags.Int64Var(&seed, "seed", 0, "Sampling seed (0 = use current time)")

	cobra.CheckErr(cmd.MarkFlagRequired("db"))
	cobra.CheckErr(cmd.MarkFlagRequired("data-file"))

	return cmd
}

func openBackend(name, dbDir string) (backend.Backend, error) {
	switch name {
	case "memory":
		return memory.New(), nil
	case "badger":
		return badgerdb.New(badgerdb.Config{Path: filepath.Join(dbDir, "badger")}), nil
	case "sqlite":
		return sqlite.New(sqlite.Config{Path: filepath.Join(dbDir, "storebench.db")}), nil
	default:
		return nil, fmt.Errorf(
			"unknown backend %q: bundled backends are memory, badger, sqlite; "+
				"networked engines need an external adapter", name)
	}
}

type benchConfig struct {
	test       string
	teardown   bool
	resultsDir string
	runner     runner.Config
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	b backend.Backend,
	cfg benchConfig,
) (err error) {
	run := runner.New(b, logger, cfg.runner)

	if err := run.Initialize(ctx); err != nil {
		return err
	}

	// Released on every exit path; results already written stay on disk.
	defer func() {
		if cerr := run.Cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	writer := &report.Writer{
		Dir:     cfg.resultsDir,
		Backend: b.Name(),
		RunID:   run.RunID(),
	}

	if cfg.test == testScalability || cfg.test == testAll {
		points, err := run.RunScalability(ctx)
		if err != nil {
			return err
		}

		path, err := writer.WriteScalability(points)
		if err != nil {
			return err
		}

		logger.Info("scalability results saved", slog.String("path", path))
		report.SummarizeScalability(os.Stdout, points)
	}

	if cfg.test == testLoad || cfg.test == testAll {
		detail, summary, err := run.RunLoad(ctx)
		if err != nil {
			return err
		}

		detailPath, err := writer.WriteLoadDetail(detail)
		if err != nil {
			return err
		}

		summaryPath, err := writer.WriteLoadSummary(summary)
		if err != nil {
			return err
		}

		logger.Info("load results saved",
			slog.String("detail", detailPath),
			slog.String("summary", summaryPath),
		)
		report.SummarizeLoad(os.Stdout, summary)
	}

	if cfg.test == testSubstring || cfg.test == testAll {
		results, err := run.RunSubstring(ctx)
		if err != nil {
			return err
		}

		path, err := writer.WriteSubstring(results)
		if err != nil {
			return err
		}

		logger.Info("substring results saved", slog.String("path", path))
		report.SummarizeSubstring(os.Stdout, results)
	}

	if cfg.teardown {
		if err := run.Teardown(ctx); err != nil {
			return err
		}
	}

	logger.Info("benchmark complete")

	return nil
}

func newGenerateCmd(logger *slog.Logger) *cobra.Command {
	var (
		records        int
		seed           int64
		duplicateRatio float64
		out            string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a deterministic synthetic ticket dataset",
		RunE: func(_ *cobra.Command, _ []string) error {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}

			gen := workload.NewGenerator(workload.Config{
				NumRecords:     records,
				Seed:           seed,
				DuplicateRatio: duplicateRatio,
			})

			n, err := gen.Generate(f)
			if err != nil {
				f.Close()

				return fmt.Errorf("generate dataset: %w", err)
			}

			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}

			logger.Info("dataset generated",
				slog.String("path", out),
				slog.Int("records", n),
				slog.Int64("seed", seed),
			)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&records, "records", 10000, "Number of records to generate")
	flags.Int64Var(&seed, "seed", 42, "Generator seed")
	flags.Float64Var(&duplicateRatio, "duplicate-ratio", 0.02,
		"Fraction of records reusing an earlier codigo")
	flags.StringVar(&out, "out", "dataset.json", "Output file path")

	return cmd
}
