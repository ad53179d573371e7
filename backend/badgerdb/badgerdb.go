// Package badgerdb implements the backend contract on an embedded BadgerDB
// (LSM tree) store. Records live under a sequence-numbered primary key with a
// secondary index on codigo; substring search is a value scan, which is the
// honest cost of a contains query on a pure KV engine.
package badgerdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/storebench/storebench/backend"
	"github.com/storebench/storebench/ticket"
)

const (
	recordPrefix = "t:"
	codigoPrefix = "c:"

	seqBandwidth = 1024
)

// Config holds BadgerDB options.
type Config struct {
	// Path to the database directory. Ignored when InMemory is set.
	Path string

	// InMemory mode, for tests.
	InMemory bool
}

// Store is a BadgerDB-backed Backend.
type Store struct {
	cfg Config
	db  *badger.DB
	seq *badger.Sequence
}

var _ backend.Backend = (*Store)(nil)

// New creates a disconnected BadgerDB store.
func New(cfg Config) *Store {
	return &Store{cfg: cfg}
}

func (s *Store) Name() string { return "badger" }

func (s *Store) Connect(ctx context.Context) error {
	opts := badger.DefaultOptions(s.cfg.Path).WithLogger(nil)
	if s.cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return &backend.ConnectionError{Backend: s.Name(), Err: err}
	}

	seq, err := db.GetSequence([]byte("seq:records"), seqBandwidth)
	if err != nil {
		db.Close()

		return &backend.ConnectionError{Backend: s.Name(), Err: err}
	}

	s.db = db
	s.seq = seq

	return nil
}

func (s *Store) Disconnect() error {
	if s.db == nil {
		return nil
	}

	if s.seq != nil {
		_ = s.seq.Release()
		s.seq = nil
	}

	err := s.db.Close()
	s.db = nil

	if err != nil {
		return fmt.Errorf("close badger: %w", err)
	}

	return nil
}

// SetupSchema is a no-op: badger is schemaless and keys are created lazily.
func (s *Store) SetupSchema(ctx context.Context) error {
	return nil
}

func (s *Store) Teardown(ctx context.Context) error {
	if err := s.seq.Release(); err != nil {
		return &backend.SchemaError{Backend: s.Name(), Err: err}
	}

	if err := s.db.DropAll(); err != nil {
		return &backend.SchemaError{Backend: s.Name(), Err: err}
	}

	// DropAll wipes the sequence key too; reacquire it.
	seq, err := s.db.GetSequence([]byte("seq:records"), seqBandwidth)
	if err != nil {
		return &backend.SchemaError{Backend: s.Name(), Err: err}
	}

	s.seq = seq

	return nil
}

func (s *Store) InsertBatch(ctx context.Context, records []ticket.Record) (time.Duration, error) {
	if len(records) == 0 {
		return 0, fmt.Errorf("badger: insert_batch: empty batch")
	}

	start := time.Now()
	now := time.Now()

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range records {
		id, err := s.seq.Next()
		if err != nil {
			return 0, fmt.Errorf("next sequence: %w", err)
		}

		r := records[i]
		r.CreatedAt = now

		value, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("encode record %s: %w", r.Codigo, err)
		}

		if err := wb.Set(recordKey(id), value); err != nil {
			return 0, fmt.Errorf("set record %s: %w", r.Codigo, err)
		}

		if err := wb.Set(codigoKey(r.Codigo, id), recordKey(id)); err != nil {
			return 0, fmt.Errorf("index record %s: %w", r.Codigo, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush batch: %w", err)
	}

	return time.Since(start), nil
}

func (s *Store) QueryByCodigo(ctx context.Context, codigos []string) ([]ticket.Record, time.Duration, error) {
	if len(codigos) == 0 {
		return nil, 0, nil
	}

	start := time.Now()

	// IN-style semantics: duplicate inputs match each stored record once.
	distinct := make(map[string]bool, len(codigos))
	for _, c := range codigos {
		distinct[c] = true
	}

	var results []ticket.Record

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for codigo := range distinct {
			prefix := codigoIndexPrefix(codigo)

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				var primary []byte

				err := it.Item().Value(func(v []byte) error {
					primary = append([]byte(nil), v...)

					return nil
				})
				if err != nil {
					return err
				}

				item, err := txn.Get(primary)
				if err != nil {
					return fmt.Errorf("fetch %q: %w", primary, err)
				}

				err = item.Value(func(v []byte) error {
					var r ticket.Record
					if err := json.Unmarshal(v, &r); err != nil {
						return err
					}

					results = append(results, r)

					return nil
				})
				if err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, 0, &backend.QueryError{Backend: s.Name(), Op: "query_by_codigo", Err: err}
	}

	return results, time.Since(start), nil
}

func (s *Store) QueryByClienteSubstring(ctx context.Context, substring string, limit int) ([]ticket.Record, time.Duration, error) {
	if limit <= 0 {
		limit = backend.DefaultSubstringLimit
	}

	start := time.Now()
	needle := strings.ToLower(substring)

	var results []ticket.Record

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(recordPrefix)

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var r ticket.Record
				if err := json.Unmarshal(v, &r); err != nil {
					return err
				}

				if strings.Contains(strings.ToLower(r.Cliente), needle) {
					results = append(results, r)
				}

				return nil
			})
			if err != nil {
				return err
			}

			if len(results) >= limit {
				break
			}
		}

		return nil
	})
	if err != nil {
		return nil, 0, &backend.QueryError{Backend: s.Name(), Op: "query_by_cliente_substring", Err: err}
	}

	return results, time.Since(start), nil
}

func (s *Store) RecordCount(ctx context.Context) (int, error) {
	var count int

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(recordPrefix)

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}

		return nil
	})
	if err != nil {
		return 0, &backend.QueryError{Backend: s.Name(), Op: "record_count", Err: err}
	}

	return count, nil
}

func recordKey(id uint64) []byte {
	key := make([]byte, len(recordPrefix)+8)
	copy(key, recordPrefix)
	binary.BigEndian.PutUint64(key[len(recordPrefix):], id)

	return key
}

// codigoKey builds the secondary index key. Codigos are free-form strings, so
// a NUL separator keeps one codigo's entries from colliding with another's
// prefix range.
func codigoKey(codigo string, id uint64) []byte {
	var buf bytes.Buffer
	buf.WriteString(codigoPrefix)
	buf.WriteString(codigo)
	buf.WriteByte(0)

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	buf.Write(key)

	return buf.Bytes()
}

func codigoIndexPrefix(codigo string) []byte {
	var buf bytes.Buffer
	buf.WriteString(codigoPrefix)
	buf.WriteString(codigo)
	buf.WriteByte(0)

	return buf.Bytes()
}
