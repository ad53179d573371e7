// Package bench implements the three benchmark protocols: scalability, load,
// and substring search. Each protocol drives a backend through the capability
// contract and aggregates per-query latencies with the stats package.
package bench

import (
	"fmt"
	mrand "math/rand"
	"time"
)

// SamplingError is raised when the codigo population is smaller than the
// requested batch. Silently truncating would bias the statistics, so this
// fails loudly instead.
type SamplingError struct {
	Requested  int
	Population int
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("cannot sample %d codigos from a population of %d",
		e.Requested, e.Population)
}

// Sampler draws codigo batches from a population using an injected generator,
// so protocol runs are reproducible under test.
type Sampler struct {
	rng *mrand.Rand
}

// NewSampler creates a Sampler. A nil rng falls back to a time-seeded one.
func NewSampler(rng *mrand.Rand) *Sampler {
	if rng == nil {
		rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
	}

	return &Sampler{rng: rng}
}

// WithoutReplacement draws n distinct positions from population. Errors with
// SamplingError when the population is too small.
func (s *Sampler) WithoutReplacement(population []string, n int) ([]string, error) {
	if n > len(population) {
		return nil, &SamplingError{Requested: n, Population: len(population)}
	}

	// Partial Fisher-Yates over a copy: only the first n slots are settled.
	scratch := make([]string, len(population))
	copy(scratch, population)

	for i := 0; i < n; i++ {
		j := i + s.rng.Intn(len(scratch)-i)
		scratch[i], scratch[j] = scratch[j], scratch[i]
	}

	return scratch[:n], nil
}

// WithReplacement draws n values from population, repeats allowed.
func (s *Sampler) WithReplacement(population []string, n int) ([]string, error) {
	if len(population) == 0 {
		return nil, &SamplingError{Requested: n, Population: 0}
	}

	out := make([]string, n)
	for i := range out {
		out[i] = population[s.rng.Intn(len(population))]
	}

	return out, nil
}

// IntBetween returns a uniform value in [min, max], both inclusive.
func (s *Sampler) IntBetween(min, max int) int {
	if max <= min {
		return min
	}

	return min + s.rng.Intn(max-min+1)
}
