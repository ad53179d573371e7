package bench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/storebench/storebench/backend"
	"github.com/storebench/storebench/stats"
)

const (
	// DefaultLoadIterations is the load test iteration count.
	DefaultLoadIterations = 1000

	// QueriesPerIteration is fixed by the protocol: every iteration runs 50
	// timed queries.
	QueriesPerIteration = 50

	// DefaultMinBatchSize and DefaultMaxBatchSize bound the per-query codigo
	// batch during the main phase.
	DefaultMinBatchSize = 20
	DefaultMaxBatchSize = 30

	// DefaultWarmupIterations is the throwaway round count before measuring.
	DefaultWarmupIterations = 100

	warmupPoolSize    = 50
	warmupMinBatch    = 10
	warmupMaxBatch    = 30
	logProgressEvery  = 100
)

// LoadConfig parameterizes the load protocol. Zero values select defaults.
type LoadConfig struct {
	Iterations       int
	MinBatchSize     int
	MaxBatchSize     int
	WarmupIterations int
}

func (c LoadConfig) withDefaults() LoadConfig {
	if c.Iterations <= 0 {
		c.Iterations = DefaultLoadIterations
	}
	if c.MinBatchSize <= 0 {
		c.MinBatchSize = DefaultMinBatchSize
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = DefaultMaxBatchSize
	}

	return c
}

// LoadIteration is one detail row: the latency aggregate over the 50 queries
// of a single iteration.
type LoadIteration struct {
	Iteration int
	Stats     stats.Statistics
}

// LoadSummary is the single summary row emitted after all iterations.
//
// The overall figures are a two-level aggregation: mean of the per-iteration
// means, median of the medians, and p95/p99 over the per-iteration p95/p99
// values. This is a known approximation that understates tail latency
// compared to pooling the raw samples; it is preserved deliberately so
// results stay comparable with earlier runs.
type LoadSummary struct {
	Database            string
	TotalIterations     int
	QueriesPerIteration int
	BatchSizeMin        int
	BatchSizeMax        int
	OverallMean         time.Duration
	OverallMedian       time.Duration
	OverallP95          time.Duration
	OverallP99          time.Duration
	Timestamp           time.Time
}

// Load measures steady-state query latency against a fully populated
// backend. The caller is responsible for the data being in place.
type Load struct {
	Backend backend.Backend
	Logger  *slog.Logger
	Sampler *Sampler
	Config  LoadConfig
}

// Warmup primes backend caches with throwaway queries: each round draws a
// batch sized uniformly in [10,30] with replacement from the first 50
// codigos. Failures are logged and ignored; nothing is measured.
func (l *Load) Warmup(ctx context.Context, codigos []string) {
	iterations := l.Config.WarmupIterations
	if iterations <= 0 {
		return
	}

	pool := codigos
	if len(pool) > warmupPoolSize {
		pool = pool[:warmupPoolSize]
	}

	l.Logger.Info("warming up", slog.Int("iterations", iterations))

	for i := 0; i < iterations; i++ {
		n := l.Sampler.IntBetween(warmupMinBatch, warmupMaxBatch)

		batch, err := l.Sampler.WithReplacement(pool, n)
		if err != nil {
			l.Logger.Warn("warmup sampling failed", slog.String("error", err.Error()))

			return
		}

		if _, _, err := l.Backend.QueryByCodigo(ctx, batch); err != nil {
			l.Logger.Warn("warmup query failed", slog.String("error", err.Error()))
		}
	}
}

// Run executes the main phase: Iterations rounds of 50 queries each, every
// query drawing a batch sized uniformly in [MinBatchSize, MaxBatchSize] of
// distinct codigos sampled without replacement from the full population. It
// returns one detail row per iteration and exactly one summary row.
func (l *Load) Run(ctx context.Context, codigos []string) ([]LoadIteration, LoadSummary, error) {
	cfg := l.Config.withDefaults()

	if cfg.MaxBatchSize > len(codigos) {
		return nil, LoadSummary{}, &SamplingError{
			Requested:  cfg.MaxBatchSize,
			Population: len(codigos),
		}
	}

	l.Logger.Info("running load test",
		slog.Int("iterations", cfg.Iterations),
		slog.Int("population", len(codigos)),
		slog.Int("batch_size_min", cfg.MinBatchSize),
		slog.Int("batch_size_max", cfg.MaxBatchSize),
	)

	detail := make([]LoadIteration, 0, cfg.Iterations)

	var means, medians, p95s, p99s stats.Recorder

	for i := 0; i < cfg.Iterations; i++ {
		var recorder stats.Recorder

		for q := 0; q < QueriesPerIteration; q++ {
			n := l.Sampler.IntBetween(cfg.MinBatchSize, cfg.MaxBatchSize)

			batch, err := l.Sampler.WithoutReplacement(codigos, n)
			if err != nil {
				return detail, LoadSummary{}, fmt.Errorf("sample iteration %d: %w", i+1, err)
			}

			_, elapsed, err := l.Backend.QueryByCodigo(ctx, batch)
			if err != nil {
				recorder.AddError(err.Error())
				l.Logger.Error("load query failed",
					slog.Int("iteration", i+1),
					slog.String("error", err.Error()),
				)

				continue
			}

			recorder.Add(elapsed)
		}

		iterStats, ok := recorder.Statistics()

		detail = append(detail, LoadIteration{Iteration: i + 1, Stats: iterStats})

		if ok {
			means.Add(iterStats.Mean)
			medians.Add(iterStats.Median)
			p95s.Add(iterStats.P95)
			p99s.Add(iterStats.P99)
		}

		if (i+1)%logProgressEvery == 0 {
			l.Logger.Info("load test progress",
				slog.Int("completed", i+1),
				slog.Int("total", cfg.Iterations),
			)
		}
	}

	meanStats, _ := means.Statistics()
	medianStats, _ := medians.Statistics()
	p95Stats, _ := p95s.Statistics()
	p99Stats, _ := p99s.Statistics()

	summary := LoadSummary{
		Database:            l.Backend.Name(),
		TotalIterations:     cfg.Iterations,
		QueriesPerIteration: QueriesPerIteration,
		BatchSizeMin:        cfg.MinBatchSize,
		BatchSizeMax:        cfg.MaxBatchSize,
		OverallMean:         meanStats.Mean,
		OverallMedian:       medianStats.Median,
		OverallP95:          p95Stats.P95,
		OverallP99:          p99Stats.P99,
		Timestamp:           time.Now(),
	}

	return detail, summary, nil
}
