// Package memory implements the backend contract with an in-process slice.
// Data is lost on disconnect. Useful for tests and for exercising the
// benchmark pipeline without a storage engine.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/storebench/storebench/backend"
	"github.com/storebench/storebench/ticket"
)

// Store is an in-memory Backend. The contract promises a single caller, but
// the mutex keeps internally parallelized batches safe too.
type Store struct {
	mu        sync.RWMutex
	connected bool
	schema    bool
	records   []ticket.Record
}

var _ backend.Backend = (*Store)(nil)

// New creates a disconnected in-memory store.
func New() *Store {
	return &Store{}
}

func (s *Store) Name() string { return "memory" }

func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = true

	return nil
}

func (s *Store) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = false
	s.records = nil
	s.schema = false

	return nil
}

func (s *Store) SetupSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireConnection(); err != nil {
		return err
	}

	s.schema = true

	return nil
}

func (s *Store) Teardown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireConnection(); err != nil {
		return err
	}

	s.records = nil
	s.schema = false

	return nil
}

func (s *Store) InsertBatch(ctx context.Context, records []ticket.Record) (time.Duration, error) {
	if len(records) == 0 {
		return 0, &backend.QueryError{Backend: s.Name(), Op: "insert_batch", Err: errEmptyBatch}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireSchema(); err != nil {
		return 0, err
	}

	start := time.Now()
	now := time.Now()

	for _, r := range records {
		r.CreatedAt = now
		s.records = append(s.records, r)
	}

	return time.Since(start), nil
}

func (s *Store) QueryByCodigo(ctx context.Context, codigos []string) ([]ticket.Record, time.Duration, error) {
	if len(codigos) == 0 {
		return nil, 0, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireSchema(); err != nil {
		return nil, 0, err
	}

	start := time.Now()

	wanted := make(map[string]bool, len(codigos))
	for _, c := range codigos {
		wanted[c] = true
	}

	var results []ticket.Record
	for _, r := range s.records {
		if wanted[r.Codigo] {
			results = append(results, r)
		}
	}

	return results, time.Since(start), nil
}

func (s *Store) QueryByClienteSubstring(ctx context.Context, substring string, limit int) ([]ticket.Record, time.Duration, error) {
	if limit <= 0 {
		limit = backend.DefaultSubstringLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireSchema(); err != nil {
		return nil, 0, err
	}

	start := time.Now()
	needle := strings.ToLower(substring)

	var results []ticket.Record
	for _, r := range s.records {
		if strings.Contains(strings.ToLower(r.Cliente), needle) {
			results = append(results, r)
			if len(results) == limit {
				break
			}
		}
	}

	return results, time.Since(start), nil
}

func (s *Store) RecordCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireConnection(); err != nil {
		return 0, err
	}

	return len(s.records), nil
}

var errEmptyBatch = fmt.Errorf("empty batch")

func (s *Store) requireConnection() error {
	if !s.connected {
		return &backend.ConnectionError{Backend: s.Name(), Err: fmt.Errorf("not connected")}
	}

	return nil
}

func (s *Store) requireSchema() error {
	if err := s.requireConnection(); err != nil {
		return err
	}

	if !s.schema {
		return &backend.SchemaError{Backend: s.Name(), Err: fmt.Errorf("schema not created")}
	}

	return nil
}
