package bench

import (
	"context"
	"log/slog"

	"github.com/storebench/storebench/backend"
	"github.com/storebench/storebench/stats"
)

// DefaultSubstringIterations is how often each pattern is queried.
const DefaultSubstringIterations = 100

// DefaultPatterns are the stock cliente search terms.
var DefaultPatterns = []string{
	"empresa", "ltda", "silva", "santos", "oliveira",
	"software", "sistemas", "consultoria", "servicos", "comercio",
}

// SubstringResult is one row of the substring result table. Stats.Count is
// the number of successful queries the aggregate was built from.
type SubstringResult struct {
	Substring string
	Stats     stats.Statistics
}

// Substring measures free-text search latency: each pattern is queried
// Iterations times back to back, so the numbers reflect warm cache/index
// performance for that pattern rather than pattern diversity.
type Substring struct {
	Backend    backend.Backend
	Logger     *slog.Logger
	Patterns   []string
	Iterations int
	Limit      int
}

// Run queries every configured pattern and emits one result row per pattern
// that had at least one successful query. Patterns whose queries all failed
// are omitted from the output, not recorded as zero.
func (s *Substring) Run(ctx context.Context) ([]SubstringResult, error) {
	patterns := s.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	iterations := s.Iterations
	if iterations <= 0 {
		iterations = DefaultSubstringIterations
	}

	s.Logger.Info("running substring search test",
		slog.Int("patterns", len(patterns)),
		slog.Int("iterations", iterations),
	)

	results := make([]SubstringResult, 0, len(patterns))

	for _, pattern := range patterns {
		var recorder stats.Recorder

		for i := 0; i < iterations; i++ {
			_, elapsed, err := s.Backend.QueryByClienteSubstring(ctx, pattern, s.Limit)
			if err != nil {
				recorder.AddError(err.Error())
				s.Logger.Error("substring query failed",
					slog.String("pattern", pattern),
					slog.String("error", err.Error()),
				)

				continue
			}

			recorder.Add(elapsed)
		}

		patternStats, ok := recorder.Statistics()
		if !ok {
			s.Logger.Warn("pattern had no successful queries, omitting",
				slog.String("pattern", pattern),
			)

			continue
		}

		results = append(results, SubstringResult{
			Substring: pattern,
			Stats:     patternStats,
		})
	}

	return results, nil
}
