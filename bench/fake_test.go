package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/storebench/storebench/ticket"
)

// fakeBackend is a scriptable in-process Backend for protocol tests. It
// answers every timed operation with a fixed latency and can be told to fail
// specific operations.
type fakeBackend struct {
	name    string
	latency time.Duration

	inserted    [][]ticket.Record
	recordCount int

	codigoCalls [][]string
	codigoErr   error

	substringCalls map[string]int
	substringErr   map[string]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		name:           "fake",
		latency:        5 * time.Millisecond,
		substringCalls: map[string]int{},
		substringErr:   map[string]bool{},
	}
}

func (f *fakeBackend) Name() string                          { return f.name }
func (f *fakeBackend) Connect(ctx context.Context) error     { return nil }
func (f *fakeBackend) Disconnect() error                     { return nil }
func (f *fakeBackend) SetupSchema(ctx context.Context) error { return nil }
func (f *fakeBackend) Teardown(ctx context.Context) error    { return nil }

func (f *fakeBackend) InsertBatch(ctx context.Context, records []ticket.Record) (time.Duration, error) {
	if len(records) == 0 {
		return 0, fmt.Errorf("empty batch")
	}

	f.inserted = append(f.inserted, records)
	f.recordCount += len(records)

	return f.latency, nil
}

func (f *fakeBackend) QueryByCodigo(ctx context.Context, codigos []string) ([]ticket.Record, time.Duration, error) {
	if len(codigos) == 0 {
		return nil, 0, nil
	}

	f.codigoCalls = append(f.codigoCalls, codigos)

	if f.codigoErr != nil {
		return nil, 0, f.codigoErr
	}

	return nil, f.latency, nil
}

func (f *fakeBackend) QueryByClienteSubstring(ctx context.Context, substring string, limit int) ([]ticket.Record, time.Duration, error) {
	f.substringCalls[substring]++

	if f.substringErr[substring] {
		return nil, 0, fmt.Errorf("substring %q failed", substring)
	}

	return nil, f.latency, nil
}

func (f *fakeBackend) RecordCount(ctx context.Context) (int, error) {
	return f.recordCount, nil
}

func makeRecords(n int) []ticket.Record {
	records := make([]ticket.Record, n)
	for i := range records {
		records[i] = ticket.Record{
			Codigo:  fmt.Sprintf("ATD-%08d", i+1),
			Cliente: "empresa exemplo",
		}
	}

	return records
}
