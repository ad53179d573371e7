package bench

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storebench/storebench/ticket"
)

func TestLoadDetailAndSummaryRowCounts(t *testing.T) {
	for _, n := range []int{1, 3, 7} {
		fake := newFakeBackend()
		proto := &Load{
			Backend: fake,
			Logger:  testLogger(),
			Sampler: testSampler(),
			Config:  LoadConfig{Iterations: n},
		}

		detail, summary, err := proto.Run(context.Background(), ticket.Codigos(makeRecords(100)))
		require.NoError(t, err)

		assert.Len(t, detail, n, "iterations=%d", n)
		assert.Equal(t, n, summary.TotalIterations)
		assert.Equal(t, QueriesPerIteration, summary.QueriesPerIteration)
		assert.Equal(t, "fake", summary.Database)
		assert.False(t, summary.Timestamp.IsZero())
	}
}

func TestLoadBatchSizesWithinWindow(t *testing.T) {
	fake := newFakeBackend()
	proto := &Load{
		Backend: fake,
		Logger:  testLogger(),
		Sampler: testSampler(),
		Config:  LoadConfig{Iterations: 4, MinBatchSize: 22, MaxBatchSize: 28},
	}

	_, _, err := proto.Run(context.Background(), ticket.Codigos(makeRecords(200)))
	require.NoError(t, err)

	require.Len(t, fake.codigoCalls, 4*QueriesPerIteration)

	for _, call := range fake.codigoCalls {
		assert.GreaterOrEqual(t, len(call), 22)
		assert.LessOrEqual(t, len(call), 28)

		seen := map[string]bool{}
		for _, c := range call {
			assert.False(t, seen[c], "codigo %s drawn twice in one batch", c)
			seen[c] = true
		}
	}
}

func TestLoadConstantLatencySummary(t *testing.T) {
	fake := newFakeBackend()
	fake.latency = 8 * time.Millisecond

	proto := &Load{
		Backend: fake,
		Logger:  testLogger(),
		Sampler: testSampler(),
		Config:  LoadConfig{Iterations: 3},
	}

	detail, summary, err := proto.Run(context.Background(), ticket.Codigos(makeRecords(100)))
	require.NoError(t, err)

	for _, d := range detail {
		assert.Equal(t, QueriesPerIteration, d.Stats.Count)
		assert.Equal(t, 8*time.Millisecond, d.Stats.Mean)
		assert.Equal(t, 8*time.Millisecond, d.Stats.P99)
	}

	// With constant latencies the two-level aggregation collapses to the
	// constant itself.
	assert.Equal(t, 8*time.Millisecond, summary.OverallMean)
	assert.Equal(t, 8*time.Millisecond, summary.OverallMedian)
	assert.Equal(t, 8*time.Millisecond, summary.OverallP95)
	assert.Equal(t, 8*time.Millisecond, summary.OverallP99)
}

func TestLoadPopulationTooSmall(t *testing.T) {
	fake := newFakeBackend()
	proto := &Load{
		Backend: fake,
		Logger:  testLogger(),
		Sampler: testSampler(),
		Config:  LoadConfig{Iterations: 1},
	}

	_, _, err := proto.Run(context.Background(), ticket.Codigos(makeRecords(10)))
	require.Error(t, err)

	var sampErr *SamplingError
	assert.True(t, errors.As(err, &sampErr))
	assert.Empty(t, fake.codigoCalls, "must fail before issuing any query")
}

func TestLoadQueryErrorsRecordedNotFatal(t *testing.T) {
	fake := newFakeBackend()
	fake.codigoErr = errors.New("engine hiccup")

	proto := &Load{
		Backend: fake,
		Logger:  testLogger(),
		Sampler: testSampler(),
		Config:  LoadConfig{Iterations: 2},
	}

	detail, _, err := proto.Run(context.Background(), ticket.Codigos(makeRecords(100)))
	require.NoError(t, err)
	require.Len(t, detail, 2)

	for _, d := range detail {
		assert.Equal(t, 0, d.Stats.Count)
		assert.Equal(t, QueriesPerIteration, d.Stats.ErrorCount)
	}
}

func TestWarmupQueriesAndPool(t *testing.T) {
	fake := newFakeBackend()
	proto := &Load{
		Backend: fake,
		Logger:  testLogger(),
		Sampler: testSampler(),
		Config:  LoadConfig{WarmupIterations: 20},
	}

	codigos := ticket.Codigos(makeRecords(200))
	proto.Warmup(context.Background(), codigos)

	require.Len(t, fake.codigoCalls, 20)

	pool := map[string]bool{}
	for _, c := range codigos[:50] {
		pool[c] = true
	}

	for _, call := range fake.codigoCalls {
		assert.GreaterOrEqual(t, len(call), 10)
		assert.LessOrEqual(t, len(call), 30)

		for _, c := range call {
			assert.True(t, pool[c], "warmup drew %s from outside the first 50", c)
		}
	}
}

func TestWarmupFailuresNotFatal(t *testing.T) {
	fake := newFakeBackend()
	fake.codigoErr = errors.New("cold cache")

	proto := &Load{
		Backend: fake,
		Logger:  testLogger(),
		Sampler: testSampler(),
		Config:  LoadConfig{WarmupIterations: 5},
	}

	// Must not panic or abort; warmup results are discarded anyway.
	proto.Warmup(context.Background(), ticket.Codigos(makeRecords(60)))
	assert.Len(t, fake.codigoCalls, 5)
}

func TestWarmupDisabled(t *testing.T) {
	fake := newFakeBackend()
	proto := &Load{
		Backend: fake,
		Logger:  testLogger(),
		Sampler: testSampler(),
	}

	proto.Warmup(context.Background(), ticket.Codigos(makeRecords(60)))
	assert.Empty(t, fake.codigoCalls)
}
