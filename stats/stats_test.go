package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticsKnownSamples(t *testing.T) {
	var r Recorder
	for _, ms := range []int{10, 20, 30, 40, 50} {
		r.Add(time.Duration(ms) * time.Millisecond)
	}

	got, ok := r.Statistics()
	require.True(t, ok)

	assert.Equal(t, 5, got.Count)
	assert.Equal(t, 30*time.Millisecond, got.Mean)
	assert.Equal(t, 30*time.Millisecond, got.Median)
	assert.Equal(t, 10*time.Millisecond, got.Min)
	assert.Equal(t, 50*time.Millisecond, got.Max)

	// rank = 0.95*4 = 3.8 -> 40ms + 0.8*(50ms-40ms) = 48ms
	assert.Equal(t, 48*time.Millisecond, got.P95)
	// rank = 0.99*4 = 3.96 -> 49.6ms
	assert.InDelta(t, float64(49600*time.Microsecond), float64(got.P99), float64(time.Microsecond))
}

func TestStatisticsEmpty(t *testing.T) {
	var r Recorder

	got, ok := r.Statistics()
	assert.False(t, ok)
	assert.Equal(t, 0, got.Count)
}

func TestStatisticsSingleSample(t *testing.T) {
	var r Recorder
	r.Add(7 * time.Millisecond)

	got, ok := r.Statistics()
	require.True(t, ok)

	assert.Equal(t, 1, got.Count)
	assert.Equal(t, 7*time.Millisecond, got.Min)
	assert.Equal(t, 7*time.Millisecond, got.Median)
	assert.Equal(t, 7*time.Millisecond, got.P95)
	assert.Equal(t, 7*time.Millisecond, got.P99)
	assert.Equal(t, 7*time.Millisecond, got.Max)
	assert.Equal(t, time.Duration(0), got.StdDev)
}

func TestErrorsExcludedFromAggregate(t *testing.T) {
	var r Recorder
	r.Add(10 * time.Millisecond)
	r.Add(20 * time.Millisecond)
	r.AddError("query timed out")
	r.AddError("connection reset")

	got, ok := r.Statistics()
	require.True(t, ok)

	assert.Equal(t, 2, got.Count)
	assert.Equal(t, 2, got.ErrorCount)
	assert.Equal(t, 15*time.Millisecond, got.Mean)
	assert.Equal(t, []string{"query timed out", "connection reset"}, r.Errors())
}

func TestErrorsOnly(t *testing.T) {
	var r Recorder
	r.AddError("boom")

	got, ok := r.Statistics()
	assert.False(t, ok)
	assert.Equal(t, 1, got.ErrorCount)
}

func TestPercentileInterpolation(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"median even count", []float64{1, 2, 3, 4}, 50, 2.5},
		{"p0 is min", []float64{3, 7, 9}, 0, 3},
		{"p100 is max", []float64{3, 7, 9}, 100, 9},
		{"quartile", []float64{10, 20, 30, 40, 50}, 25, 20},
		{"interpolated", []float64{0, 10}, 75, 7.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, percentile(tt.sorted, tt.p), 1e-9)
		})
	}
}
