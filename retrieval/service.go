// Package retrieval answers free-form questions from database rows and
// uploaded documents.
//
// Rows and documents are cut into fixed-size chunks, ranked against the
// question, and the best few are handed to the language model as the
// only context it may use.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/mvrodados/mvrodados/ai"
	"github.com/mvrodados/mvrodados/applog"
	"github.com/mvrodados/mvrodados/db"
)

const (
	ChunkSize    = 1500
	TopK         = 3
	RowsPerTable = 20
)

// DefaultTables are searched when the caller names no sources.
var DefaultTables = []string{
	"Accesorios", "Bicicletas", "Cascos", "Clientes",
	"Comprobantes", "Indumentarias", "ListaPrecios", "Motos",
}

const (
	msgNoRecords      = "No hay registros en la base de datos para analizar."
	msgNoRelevant     = "No se encontraron registros relevantes en la base de datos."
	msgGenerationFail = "Error generando la respuesta basada en los datos."
)

// Source names where an answer came from.
type Source struct {
	Name string `json:"name"`
}

// Answer is the model's reply and its provenance.
type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Store is the slice of *db.DB the service needs.
type Store interface {
	db.Querier
	SchemaOrEmpty(ctx context.Context) db.SchemaMap
}

// Service runs the retrieval fallback.
type Service struct {
	store    Store
	docs     *DocumentIndex
	provider ai.Provider
	ranker   Ranker
}

// NewService wires the fallback. docs may be nil; ranker defaults to
// WordOverlapRanker.
func NewService(store Store, docs *DocumentIndex, provider ai.Provider, ranker Ranker) *Service {
	if docs == nil {
		docs = NewDocumentIndex()
	}
	if ranker == nil {
		ranker = WordOverlapRanker{}
	}
	if provider == nil {
		provider = ai.NewPlaceholder()
	}
	return &Service{store: store, docs: docs, provider: provider, ranker: ranker}
}

// Documents returns the document index.
func (s *Service) Documents() *DocumentIndex { return s.docs }

var answerOptions = ai.Options{Temperature: 0.3, MaxTokens: 800}

// AnswerQuery answers from the named sources (tables or documents), or
// from the default tables plus every indexed document.
func (s *Service) AnswerQuery(ctx context.Context, query string, sources ...string) Answer {
	chunks := s.collect(ctx, sources)
	if len(chunks) == 0 {
		return Answer{Text: msgNoRecords, Sources: []Source{}}
	}

	top := s.ranker.Rank(query, chunks, TopK)
	if len(top) == 0 {
		return Answer{Text: msgNoRelevant, Sources: []Source{}}
	}

	parts := make([]string, len(top))
	for i, c := range top {
		parts[i] = c.Source + ":\n" + c.Content
	}
	user := fmt.Sprintf("Registros relevantes encontrados:\n%s\n\nPregunta: %s", strings.Join(parts, "\n\n"), query)

	text, err := ai.Ask(ctx, s.provider, ai.SystemPromptRetrieval, user, answerOptions)
	if err != nil {
		applog.Event("retrieval", "answer failed", "err", err)
		return Answer{Text: msgGenerationFail, Sources: []Source{}}
	}
	return Answer{Text: text, Sources: dedupSources(top)}
}

func (s *Service) collect(ctx context.Context, sources []string) []Chunk {
	var (
		schema db.SchemaMap
		tables []string
		docs   []string
	)
	loadSchema := func() db.SchemaMap {
		if schema == nil && s.store != nil {
			schema = s.store.SchemaOrEmpty(ctx)
		}
		return schema
	}

	if len(sources) == 0 {
		for _, t := range DefaultTables {
			if name, ok := loadSchema().Table(t); ok {
				tables = append(tables, name)
			}
		}
		for _, d := range s.docs.List() {
			docs = append(docs, d.Name)
		}
	} else {
		for _, src := range sources {
			if s.docs.Has(src) {
				docs = append(docs, src)
				continue
			}
			if name, ok := loadSchema().Table(src); ok {
				tables = append(tables, name)
				continue
			}
			applog.Warn("unknown retrieval source", "source", src)
		}
	}

	var chunks []Chunk
	for _, t := range tables {
		rows, err := s.fetch(ctx, t)
		if err != nil {
			applog.Warn("could not read table", "table", t, "err", err)
			continue
		}
		for i := range rows.Records {
			chunks = append(chunks, splitChunks(t, rowText(rows, i), ChunkSize)...)
		}
	}
	for _, d := range docs {
		chunks = append(chunks, s.docs.Chunks(d, ChunkSize)...)
	}
	return chunks
}

func (s *Service) fetch(ctx context.Context, table string) (*db.Rows, error) {
	d := s.store.SQLDialect()
	q := d.SelectHead(RowsPerTable) + "* FROM " + d.Quote(table) + d.LimitTail(RowsPerTable)
	return s.store.Query(ctx, q)
}

func rowText(rows *db.Rows, i int) string {
	vals := rows.Values(i)
	parts := make([]string, len(vals))
	for j, v := range vals {
		parts[j] = db.AsString(v)
	}
	return strings.Join(parts, " | ")
}

func dedupSources(chunks []Chunk) []Source {
	seen := map[string]bool{}
	out := []Source{}
	for _, c := range chunks {
		if seen[c.Source] {
			continue
		}
		seen[c.Source] = true
		out = append(out, Source{Name: c.Source})
	}
	return out
}
