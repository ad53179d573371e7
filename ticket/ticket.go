// Package ticket defines the service ticket record benchmarked by storebench.
package ticket

import "time"

// Record is one service ticket ("atendimento"). All business attributes are
// free-form strings; CreatedAt is assigned by the storage backend at insert
// time, never by the caller. Codigo is the lookup identifier but uniqueness
// is not guaranteed: duplicates are legal and lookups must tolerate them.
type Record struct {
	Codigo           string `json:"codigo"`
	Titulo           string `json:"titulo"`
	DataInicio       string `json:"data_inicio"`
	DataFim          string `json:"data_fim"`
	Origem           string `json:"origem"`
	Contato          string `json:"contato"`
	Email            string `json:"email"`
	Descricao        string `json:"descricao"`
	Atendente        string `json:"atendente"`
	AtendenteEquipe  string `json:"atendente_equipe"`
	AtendenteUnidade string `json:"atendente_unidade"`
	Cliente          string `json:"cliente"`
	Produto          string `json:"produto"`
	Situacao         string `json:"situacao"`
	Classificacao    string `json:"classificacao"`
	SubClassificacao string `json:"sub_classificacao"`
	Tipo             string `json:"tipo"`
	Prioridade       string `json:"prioridade"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Codigos returns the codigo of every record, in order.
func Codigos(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Codigo
	}

	return out
}
