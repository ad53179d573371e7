// Package sqlite implements the backend contract on an embedded SQLite
// database. It mirrors the relational schema used for the networked SQL
// engines: one atendimentos table, a codigo index for exact lookups, and a
// lowered-cliente expression for substring search.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/storebench/storebench/backend"
	"github.com/storebench/storebench/ticket"
)

// Config holds SQLite connection parameters.
type Config struct {
	// Path to the database file.
	Path string
}

// Store is a SQLite-backed Backend.
type Store struct {
	cfg Config
	db  *sql.DB
}

var _ backend.Backend = (*Store)(nil)

// New creates a disconnected SQLite store.
func New(cfg Config) *Store {
	return &Store{cfg: cfg}
}

func (s *Store) Name() string { return "sqlite" }

func (s *Store) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlite3", s.cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return &backend.ConnectionError{Backend: s.Name(), Err: err}
	}

	// Single writer; the benchmark contract has a single caller anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return &backend.ConnectionError{Backend: s.Name(), Err: err}
	}

	s.db = db

	return nil
}

func (s *Store) Disconnect() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	if err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}

	return nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS atendimentos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	codigo TEXT NOT NULL,
	titulo TEXT,
	data_inicio TEXT,
	data_fim TEXT,
	origem TEXT,
	contato TEXT,
	email TEXT,
	descricao TEXT,
	atendente TEXT,
	atendente_equipe TEXT,
	atendente_unidade TEXT,
	cliente TEXT,
	produto TEXT,
	situacao TEXT,
	classificacao TEXT,
	sub_classificacao TEXT,
	tipo TEXT,
	prioridade TEXT,
	created_at TIMESTAMP
)`

func (s *Store) SetupSchema(ctx context.Context) error {
	stmts := []string{
		createTableSQL,
		`CREATE INDEX IF NOT EXISTS idx_atendimentos_codigo ON atendimentos(codigo)`,
		`CREATE INDEX IF NOT EXISTS idx_atendimentos_cliente ON atendimentos(cliente)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &backend.SchemaError{Backend: s.Name(), Err: err}
		}
	}

	return nil
}

func (s *Store) Teardown(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS atendimentos`); err != nil {
		return &backend.SchemaError{Backend: s.Name(), Err: err}
	}

	return nil
}

const insertSQL = `
INSERT INTO atendimentos (
	codigo, titulo, data_inicio, data_fim, origem, contato, email,
	descricao, atendente, atendente_equipe, atendente_unidade,
	cliente, produto, situacao, classificacao, sub_classificacao,
	tipo, prioridade, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *Store) InsertBatch(ctx context.Context, records []ticket.Record) (time.Duration, error) {
	if len(records) == 0 {
		return 0, fmt.Errorf("sqlite: insert_batch: empty batch")
	}

	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		tx.Rollback()

		return 0, fmt.Errorf("prepare insert: %w", err)
	}

	now := time.Now()

	for i, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.Codigo, r.Titulo, r.DataInicio, r.DataFim, r.Origem,
			r.Contato, r.Email, r.Descricao, r.Atendente,
			r.AtendenteEquipe, r.AtendenteUnidade, r.Cliente, r.Produto,
			r.Situacao, r.Classificacao, r.SubClassificacao,
			r.Tipo, r.Prioridade, now,
		)
		if err != nil {
			stmt.Close()
			tx.Rollback()

			return 0, fmt.Errorf("insert record %d (%s): %w", i, r.Codigo, err)
		}
	}

	stmt.Close()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert tx: %w", err)
	}

	return time.Since(start), nil
}

const selectColumns = `
	codigo, titulo, data_inicio, data_fim, origem, contato, email,
	descricao, atendente, atendente_equipe, atendente_unidade,
	cliente, produto, situacao, classificacao, sub_classificacao,
	tipo, prioridade, created_at`

func (s *Store) QueryByCodigo(ctx context.Context, codigos []string) ([]ticket.Record, time.Duration, error) {
	if len(codigos) == 0 {
		return nil, 0, nil
	}

	start := time.Now()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(codigos)), ",")
	args := make([]any, len(codigos))
	for i, c := range codigos {
		args[i] = c
	}

	query := fmt.Sprintf(
		`SELECT %s FROM atendimentos WHERE codigo IN (%s)`,
		selectColumns, placeholders,
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, &backend.QueryError{Backend: s.Name(), Op: "query_by_codigo", Err: err}
	}
	defer rows.Close()

	results, err := scanRecords(rows)
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

	// instr over lowered operands gives a contains match without LIKE
	// wildcard escaping concerns.
	query := fmt.Sprintf(
		`SELECT %s FROM atendimentos WHERE instr(lower(cliente), lower(?)) > 0 LIMIT ?`,
		selectColumns,
	)

	rows, err := s.db.QueryContext(ctx, query, substring, limit)
	if err != nil {
		return nil, 0, &backend.QueryError{Backend: s.Name(), Op: "query_by_cliente_substring", Err: err}
	}
	defer rows.Close()

	results, err := scanRecords(rows)
	if err != nil {
		return nil, 0, &backend.QueryError{Backend: s.Name(), Op: "query_by_cliente_substring", Err: err}
	}

	return results, time.Since(start), nil
}

func (s *Store) RecordCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM atendimentos`).Scan(&count); err != nil {
		return 0, &backend.QueryError{Backend: s.Name(), Op: "record_count", Err: err}
	}

	return count, nil
}

func scanRecords(rows *sql.Rows) ([]ticket.Record, error) {
	var results []ticket.Record

	for rows.Next() {
		var r ticket.Record
		err := rows.Scan(
			&r.Codigo, &r.Titulo, &r.DataInicio, &r.DataFim, &r.Origem,
			&r.Contato, &r.Email, &r.Descricao, &r.Atendente,
			&r.AtendenteEquipe, &r.AtendenteUnidade, &r.Cliente, &r.Produto,
			&r.Situacao, &r.Classificacao, &r.SubClassificacao,
			&r.Tipo, &r.Prioridade, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return results, nil
}
