// Package stats collects timed latency samples and computes the descriptive
// statistics the benchmark protocols report.
package stats

import (
	"math"
	"sort"
	"time"
)

// Statistics is the immutable aggregate over one group of successful samples.
// Error samples are excluded from every numeric field and surface only in
// ErrorCount. When Count > 0 the usual orderings hold:
// Min <= Median <= Max and Min <= P95 <= P99 <= Max.
type Statistics struct {
	Count      int
	Mean       time.Duration
	Median     time.Duration
	StdDev     time.Duration
	Min        time.Duration
	Max        time.Duration
	P95        time.Duration
	P99        time.Duration
	ErrorCount int
}

// Recorder is an append-only accumulator of latency samples and labeled
// errors. The zero value is ready to use.
type Recorder struct {
	samples []time.Duration
	errors  []string
}

// Add records one successful sample.
func (r *Recorder) Add(d time.Duration) {
	r.samples = append(r.samples, d)
}

// AddError records one failed operation.
func (r *Recorder) AddError(label string) {
	r.errors = append(r.errors, label)
}

// Len returns the number of successful samples recorded so far.
func (r *Recorder) Len() int { return len(r.samples) }

// Errors returns the recorded error labels, in order.
func (r *Recorder) Errors() []string { return r.errors }

// Statistics computes the aggregate over everything recorded so far. The
// second return value is false when no successful samples exist; callers must
// check it instead of dividing by zero.
func (r *Recorder) Statistics() (Statistics, bool) {
	if len(r.samples) == 0 {
		return Statistics{ErrorCount: len(r.errors)}, false
	}

	sorted := make([]float64, len(r.samples))
	var sum float64

	for i, d := range r.samples {
		sorted[i] = float64(d)
		sum += float64(d)
	}

	sort.Float64s(sorted)

	mean := sum / float64(len(sorted))

	var sqDiff float64
	for _, v := range sorted {
		sqDiff += (v - mean) * (v - mean)
	}

	return Statistics{
		Count:      len(sorted),
		Mean:       time.Duration(mean),
		Median:     time.Duration(percentile(sorted, 50)),
		StdDev:     time.Duration(math.Sqrt(sqDiff / float64(len(sorted)))),
		Min:        time.Duration(sorted[0]),
		Max:        time.Duration(sorted[len(sorted)-1]),
		P95:        time.Duration(percentile(sorted, 95)),
		P99:        time.Duration(percentile(sorted, 99)),
		ErrorCount: len(r.errors),
	}, true
}

// percentile computes the p-th percentile of an ascending-sorted slice using
// linear interpolation between ranks: rank = p/100*(n-1), blended between the
// two bracketing order statistics.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))

	if lo == hi {
		return sorted[lo]
	}

	frac := rank - float64(lo)

	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
