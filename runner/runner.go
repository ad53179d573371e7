// Package runner orchestrates one benchmark run: it owns the backend
// lifecycle (connect, schema, data load, warmup, protocols, disconnect) and
// guarantees the connection is released on every exit path.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	mrand "math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/storebench/storebench/backend"
	"github.com/storebench/storebench/bench"
	"github.com/storebench/storebench/ticket"
	"github.com/storebench/storebench/workload"
)

// State tracks the orchestration lifecycle. Failed is absorbing: once a
// fatal error occurs no further protocol may run.
type State int

const (
	StateCreated State = iota
	StateConnected
	StateSchemaReady
	StateDataLoaded
	StateWarmed
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConnected:
		return "connected"
	case StateSchemaReady:
		return "schema_ready"
	case StateDataLoaded:
		return "data_loaded"
	case StateWarmed:
		return "warmed"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	bulkInsertBatchSize = 1000
	bulkInsertLogEvery  = 10000
)

// Config holds one run's parameters. Zero values select protocol defaults.
type Config struct {
	DataFile   string
	MaxRecords int

	BatchSize int // scalability insert batch size

	Iterations       int // load test iterations
	MinBatchSize     int
	MaxBatchSize     int
	WarmupIterations int

	SubstringPatterns   []string
	SubstringIterations int
	SubstringLimit      int

	// ConnectAttempts bounds startup connection retries. Connect is the only
	// operation ever retried.
	ConnectAttempts int

	// Seed for the sampling generator; 0 uses the current time.
	Seed int64
}

// Runner drives one backend through the benchmark protocols. It exclusively
// owns the backend for the lifetime of the run.
type Runner struct {
	backend backend.Backend
	logger  *slog.Logger
	cfg     Config
	sampler *bench.Sampler
	runID   string

	state State
	data  []ticket.Record
}

// New creates a Runner in the Created state.
func New(b backend.Backend, logger *slog.Logger, cfg Config) *Runner {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	runID := uuid.NewString()

	return &Runner{
		backend: b,
		logger: logger.With(
			slog.String("backend", b.Name()),
			slog.String("run_id", runID),
		),
		cfg:     cfg,
		sampler: bench.NewSampler(mrand.New(mrand.NewSource(seed))),
		runID:   runID,
		state:   StateCreated,
	}
}

// RunID identifies this run in logs and result filenames.
func (r *Runner) RunID() string { return r.runID }

// State returns the current lifecycle state.
func (r *Runner) State() State { return r.state }

// Initialize connects the backend. A connection failure is fatal and leaves
// the runner in the Failed state.
func (r *Runner) Initialize(ctx context.Context) error {
	if r.state != StateCreated {
		return fmt.Errorf("initialize from state %s", r.state)
	}

	attempts := r.cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = r.backend.Connect(ctx); err == nil {
			r.state = StateConnected
			r.logger.Info("backend connected", slog.Int("attempt", attempt))

			return nil
		}

		r.logger.Warn("connect failed",
			slog.Int("attempt", attempt),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()),
		)
	}

	r.state = StateFailed

	return fmt.Errorf("initialize: %w", err)
}

// Cleanup releases the backend connection. It is guaranteed safe to call on
// every exit path, including repeatedly, and never performs Teardown: schema
// and data are deliberately left behind unless the caller requests teardown.
func (r *Runner) Cleanup() error {
	if err := r.backend.Disconnect(); err != nil {
		r.logger.Error("disconnect failed", slog.String("error", err.Error()))

		return fmt.Errorf("cleanup: %w", err)
	}

	r.logger.Info("backend disconnected")

	return nil
}

// Teardown destroys the backend's schema and data. Separate from Cleanup and
// only executed when the caller asks for it.
func (r *Runner) Teardown(ctx context.Context) error {
	if err := r.ensureRunnable(); err != nil {
		return err
	}

	if err := r.backend.Teardown(ctx); err != nil {
		return fmt.Errorf("teardown: %w", err)
	}

	r.logger.Info("schema torn down")

	return nil
}

// RunScalability prepares the schema, loads the dataset, and runs the
// scalability protocol.
func (r *Runner) RunScalability(ctx context.Context) ([]bench.ScalabilityPoint, error) {
	if err := r.prepareSchema(ctx); err != nil {
		return nil, err
	}

	data, err := r.loadData()
	if err != nil {
		return nil, r.fail(err)
	}

	r.state = StateRunning

	proto := &bench.Scalability{
		Backend:   r.backend,
		Logger:    r.logger,
		Sampler:   r.sampler,
		BatchSize: r.cfg.BatchSize,
	}

	points, err := proto.Run(ctx, data)
	if err != nil {
		return points, r.fail(fmt.Errorf("scalability test: %w", err))
	}

	r.state = StateCompleted

	return points, nil
}

// RunLoad prepares the schema, bulk-inserts the full dataset, warms the
// backend up, and runs the load protocol.
func (r *Runner) RunLoad(ctx context.Context) ([]bench.LoadIteration, bench.LoadSummary, error) {
	if err := r.prepareSchema(ctx); err != nil {
		return nil, bench.LoadSummary{}, err
	}

	data, err := r.loadData()
	if err != nil {
		return nil, bench.LoadSummary{}, r.fail(err)
	}

	if err := r.bulkInsert(ctx, data); err != nil {
		return nil, bench.LoadSummary{}, r.fail(err)
	}

	r.state = StateDataLoaded

	codigos := ticket.Codigos(data)

	proto := &bench.Load{
		Backend: r.backend,
		Logger:  r.logger,
		Sampler: r.sampler,
		Config: bench.LoadConfig{
			Iterations:       r.cfg.Iterations,
			MinBatchSize:     r.cfg.MinBatchSize,
			MaxBatchSize:     r.cfg.MaxBatchSize,
			WarmupIterations: r.cfg.WarmupIterations,
		},
	}

	if r.cfg.WarmupIterations > 0 {
		proto.Warmup(ctx, codigos)
		r.state = StateWarmed
	}

	r.state = StateRunning

	detail, summary, err := proto.Run(ctx, codigos)
	if err != nil {
		return detail, summary, r.fail(fmt.Errorf("load test: %w", err))
	}

	r.state = StateCompleted

	return detail, summary, nil
}

// RunSubstring prepares the schema and runs the substring protocol. When the
// backend is empty it performs the full data load first; callers relying on
// a pre-populated backend should be aware of this side effect.
func (r *Runner) RunSubstring(ctx context.Context) ([]bench.SubstringResult, error) {
	if err := r.prepareSchema(ctx); err != nil {
		return nil, err
	}

	count, err := r.backend.RecordCount(ctx)
	if err != nil {
		return nil, r.fail(fmt.Errorf("record count: %w", err))
	}

	if count == 0 {
		r.logger.Info("backend empty, populating before substring test")

		data, err := r.loadData()
		if err != nil {
			return nil, r.fail(err)
		}

		if err := r.bulkInsert(ctx, data); err != nil {
			return nil, r.fail(err)
		}

		r.state = StateDataLoaded
	}

	r.state = StateRunning

	proto := &bench.Substring{
		Backend:    r.backend,
		Logger:     r.logger,
		Patterns:   r.cfg.SubstringPatterns,
		Iterations: r.cfg.SubstringIterations,
		Limit:      r.cfg.SubstringLimit,
	}

	results, err := proto.Run(ctx)
	if err != nil {
		return results, r.fail(fmt.Errorf("substring test: %w", err))
	}

	r.state = StateCompleted

	return results, nil
}

func (r *Runner) ensureRunnable() error {
	switch r.state {
	case StateCreated:
		return fmt.Errorf("runner not initialized")
	case StateFailed:
		return fmt.Errorf("runner already failed")
	default:
		return nil
	}
}

func (r *Runner) prepareSchema(ctx context.Context) error {
	if err := r.ensureRunnable(); err != nil {
		return err
	}

	if err := r.backend.SetupSchema(ctx); err != nil {
		return r.fail(fmt.Errorf("setup schema: %w", err))
	}

	r.state = StateSchemaReady

	return nil
}

func (r *Runner) fail(err error) error {
	r.state = StateFailed
	r.logger.Error("run failed", slog.String("error", err.Error()))

	return err
}

// loadData reads the dataset once and caches it for subsequent protocols in
// the same run.
func (r *Runner) loadData() ([]ticket.Record, error) {
	if r.data != nil {
		return r.data, nil
	}

	r.logger.Info("loading dataset",
		slog.String("path", r.cfg.DataFile),
		slog.Int("max_records", r.cfg.MaxRecords),
	)

	data, err := workload.Load(r.cfg.DataFile, r.cfg.MaxRecords)
	if err != nil {
		return nil, err
	}

	r.logger.Info("dataset loaded", slog.Int("records", len(data)))
	r.data = data

	return data, nil
}

// bulkInsert loads the full dataset in fixed batches, including the trailing
// partial batch: unlike the scalability protocol, the load and substring
// tests want every record present.
func (r *Runner) bulkInsert(ctx context.Context, data []ticket.Record) error {
	for i := 0; i < len(data); i += bulkInsertBatchSize {
		end := i + bulkInsertBatchSize
		if end > len(data) {
			end = len(data)
		}

		if _, err := r.backend.InsertBatch(ctx, data[i:end]); err != nil {
			return fmt.Errorf("bulk insert at record %d: %w", i, err)
		}

		if end%bulkInsertLogEvery == 0 {
			r.logger.Info("bulk insert progress", slog.Int("inserted", end))
		}
	}

	count, err := r.backend.RecordCount(ctx)
	if err != nil {
		return fmt.Errorf("record count after bulk insert: %w", err)
	}

	r.logger.Info("bulk insert complete", slog.Int("records_in_db", count))

	return nil
}
