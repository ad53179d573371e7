// Package backend defines the capability contract every storage engine
// adapter must satisfy. The benchmark core (bench, runner) depends only on
// this interface; concrete engines live in subpackages or external modules.
package backend

import (
	"context"
	"time"

	"github.com/storebench/storebench/ticket"
)

// DefaultSubstringLimit caps QueryByClienteSubstring results when the caller
// passes limit <= 0.
const DefaultSubstringLimit = 100

// Backend is a storage engine adapter. All operations other than Connect may
// only be invoked between Connect and Disconnect. A Backend has exactly one
// owner for the lifetime of a benchmark run and is never called concurrently,
// though implementations are free to parallelize a single batch internally;
// the caller only observes the total elapsed duration.
type Backend interface {
	// Name identifies the engine in logs and result files.
	Name() string

	// Connect establishes session state. Not assumed safe to retry after a
	// partial failure; callers retry only at startup.
	Connect(ctx context.Context) error

	// Disconnect releases the session. Safe to call more than once.
	Disconnect() error

	// SetupSchema creates whatever structures the engine needs. Idempotent:
	// safe to call against a pre-existing schema.
	SetupSchema(ctx context.Context) error

	// Teardown destroys everything SetupSchema created, data included. Must
	// succeed even when nothing was ever inserted, and calling it twice in
	// succession never errors.
	Teardown(ctx context.Context) error

	// InsertBatch inserts a non-empty ordered batch, stamping CreatedAt on
	// each record, and returns the elapsed wall-clock duration. Partial
	// failure handling is engine-defined but records must never be dropped
	// silently without an error.
	InsertBatch(ctx context.Context, records []ticket.Record) (time.Duration, error)

	// QueryByCodigo returns all records whose codigo exactly equals any of
	// the given values, plus the elapsed duration. Duplicate inputs are
	// legal, unmatched inputs contribute nothing, and result order is
	// unspecified. An empty input returns immediately without touching the
	// storage path.
	QueryByCodigo(ctx context.Context, codigos []string) ([]ticket.Record, time.Duration, error)

	// QueryByClienteSubstring performs a case-insensitive contains search
	// over the cliente field, returning at most limit records.
	QueryByClienteSubstring(ctx context.Context, substring string, limit int) ([]ticket.Record, time.Duration, error)

	// RecordCount returns the current total number of stored records.
	RecordCount(ctx context.Context) (int, error)
}
