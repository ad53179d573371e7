// Package workload provides the benchmark input data: loading service ticket
// datasets from JSON files and generating deterministic synthetic ones.
package workload

import (
	"encoding/json"
	"fmt"
	"io"
	mrand "math/rand"
	"os"

	"github.com/storebench/storebench/ticket"
)

// Load reads an ordered JSON array of ticket records from path. A positive
// limit truncates to the first limit records.
func Load(path string, limit int) ([]ticket.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}

	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	return records, nil
}

// Read decodes a JSON array of ticket records from r.
func Read(r io.Reader) ([]ticket.Record, error) {
	var records []ticket.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode JSON array: %w", err)
	}

	return records, nil
}

// Config controls synthetic dataset generation.
type Config struct {
	NumRecords int
	Seed       int64

	// DuplicateRatio is the fraction of records (0..1) that reuse an earlier
	// codigo instead of getting a fresh one. Codigo uniqueness is not part of
	// the data model, so generated datasets exercise that too.
	DuplicateRatio float64
}

// Generator produces deterministic ticket datasets from a Config.
type Generator struct {
	cfg Config
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

var (
	clienteParts = []string{
		"empresa", "ltda", "silva", "santos", "oliveira",
		"software", "sistemas", "consultoria", "servicos", "comercio",
		"industria", "tecnologia", "souza", "pereira", "costa",
	}
	origens     = []string{"email", "telefone", "portal", "chat"}
	situacoes   = []string{"aberto", "em andamento", "resolvido", "cancelado"}
	tipos       = []string{"incidente", "requisicao", "duvida"}
	prioridades = []string{"baixa", "media", "alta", "critica"}
	produtos    = []string{"erp", "crm", "faturamento", "estoque", "fiscal"}
)

// Records generates the full dataset in memory.
func (g *Generator) Records() []ticket.Record {
	records := make([]ticket.Record, 0, g.cfg.NumRecords)

	for i := 0; i < g.cfg.NumRecords; i++ {
		codigo := fmt.Sprintf("ATD-%08d", i+1)
		if i > 0 && g.rng.Float64() < g.cfg.DuplicateRatio {
			codigo = records[g.rng.Intn(i)].Codigo
		}

		records = append(records, g.record(i, codigo))
	}

	return records
}

// Generate writes the dataset to w as a JSON array and returns the number of
// records written.
func (g *Generator) Generate(w io.Writer) (int, error) {
	records := g.Records()

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(records); err != nil {
		return 0, fmt.Errorf("encode dataset: %w", err)
	}

	return len(records), nil
}

func (g *Generator) record(i int, codigo string) ticket.Record {
	cliente := fmt.Sprintf("%s %s %s",
		g.pick(clienteParts), g.pick(clienteParts), g.pick(clienteParts))

	return ticket.Record{
		Codigo:           codigo,
		Titulo:           fmt.Sprintf("chamado %d", i+1),
		DataInicio:       fmt.Sprintf("2024-%02d-%02d", 1+g.rng.Intn(12), 1+g.rng.Intn(28)),
		DataFim:          fmt.Sprintf("2024-%02d-%02d", 1+g.rng.Intn(12), 1+g.rng.Intn(28)),
		Origem:           g.pick(origens),
		Contato:          fmt.Sprintf("contato %d", g.rng.Intn(500)),
		Email:            fmt.Sprintf("contato%d@exemplo.com.br", g.rng.Intn(500)),
		Descricao:        fmt.Sprintf("descricao do atendimento %d", i+1),
		Atendente:        fmt.Sprintf("atendente %d", g.rng.Intn(40)),
		AtendenteEquipe:  fmt.Sprintf("equipe %d", g.rng.Intn(8)),
		AtendenteUnidade: fmt.Sprintf("unidade %d", g.rng.Intn(4)),
		Cliente:          cliente,
		Produto:          g.pick(produtos),
		Situacao:         g.pick(situacoes),
		Classificacao:    fmt.Sprintf("classe %d", g.rng.Intn(20)),
		SubClassificacao: fmt.Sprintf("subclasse %d", g.rng.Intn(60)),
		Tipo:             g.pick(tipos),
		Prioridade:       g.pick(prioridades),
	}
}

func (g *Generator) pick(values []string) string {
	return values[g.rng.Intn(len(values))]
}
