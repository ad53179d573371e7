package bench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/storebench/storebench/backend"
	"github.com/storebench/storebench/stats"
	"github.com/storebench/storebench/ticket"
)

const (
	// DefaultBatchSize is the scalability insert batch size.
	DefaultBatchSize = 1000

	scalabilityQueryRounds  = 10
	scalabilityCodigosRound = 20
)

// ScalabilityPoint is one row of the scalability result: the state of the
// backend after the batch numbered BatchNumber was inserted.
type ScalabilityPoint struct {
	BatchNumber int
	RecordsInDB int
	InsertTime  time.Duration
	Query       stats.Statistics
	Timestamp   time.Time
}

// Scalability measures how query latency evolves as data volume grows:
// insert one batch, then probe lookup latency over everything inserted so
// far, and repeat.
type Scalability struct {
	Backend   backend.Backend
	Logger    *slog.Logger
	Sampler   *Sampler
	BatchSize int
}

// Run partitions records into consecutive BatchSize batches and emits one
// point per batch. A trailing remainder smaller than BatchSize is dropped,
// not inserted: only whole batches participate. After each insert it runs
// 10 query rounds of 20 codigos each, sampled without replacement from the
// cumulative prefix of inserted records.
func (s *Scalability) Run(ctx context.Context, records []ticket.Record) ([]ScalabilityPoint, error) {
	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	totalBatches := len(records) / batchSize

	s.Logger.Info("running scalability test",
		slog.Int("total_records", len(records)),
		slog.Int("batch_size", batchSize),
		slog.Int("batches", totalBatches),
	)

	points := make([]ScalabilityPoint, 0, totalBatches)

	for i := 0; i < totalBatches; i++ {
		batch := records[i*batchSize : (i+1)*batchSize]

		insertTime, err := s.Backend.InsertBatch(ctx, batch)
		if err != nil {
			return points, fmt.Errorf("insert batch %d: %w", i+1, err)
		}

		currentSize, err := s.Backend.RecordCount(ctx)
		if err != nil {
			return points, fmt.Errorf("record count after batch %d: %w", i+1, err)
		}

		inserted := ticket.Codigos(records[:(i+1)*batchSize])

		var recorder stats.Recorder

		for round := 0; round < scalabilityQueryRounds; round++ {
			codigos, err := s.Sampler.WithoutReplacement(inserted, scalabilityCodigosRound)
			if err != nil {
				return points, fmt.Errorf("sample batch %d round %d: %w", i+1, round, err)
			}

			_, elapsed, err := s.Backend.QueryByCodigo(ctx, codigos)
			if err != nil {
				recorder.AddError(err.Error())
				s.Logger.Warn("scalability query failed",
					slog.Int("batch", i+1),
					slog.String("error", err.Error()),
				)

				continue
			}

			recorder.Add(elapsed)
		}

		queryStats, _ := recorder.Statistics()

		points = append(points, ScalabilityPoint{
			BatchNumber: i + 1,
			RecordsInDB: currentSize,
			InsertTime:  insertTime,
			Query:       queryStats,
			Timestamp:   time.Now(),
		})

		s.Logger.Debug("scalability point recorded",
			slog.Int("batch", i+1),
			slog.Int("records_in_db", currentSize),
			slog.Duration("insert_time", insertTime),
			slog.Duration("query_mean", queryStats.Mean),
		)
	}

	return points, nil
}
