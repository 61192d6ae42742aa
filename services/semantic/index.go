// Package semantic ranks schema fragments against natural-language questions.
package semantic

import (
	"sort"
	"strings"
	"sync"

	"genbiapi/pkg/logger"
	"genbiapi/services/schema"
)

// document is one indexed schema fragment with its searchable terms.
type document struct {
	table  string
	column string
	terms  map[string]struct{}
}

// LexicalIndex is the in-process default schema.SimilarityIndex. It indexes one
// document per table and per column and scores by token overlap with the
// question. Rebuilt wholesale whenever the schema graph changes.
type LexicalIndex struct {
	mu   sync.RWMutex
	docs []document
}

var _ schema.SimilarityIndex = (*LexicalIndex)(nil)

// NewLexicalIndex creates an empty lexical index. Call Rebuild with a schema
// graph before searching.
func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{}
}

// Rebuild replaces the indexed documents from the given schema graph.
func (idx *LexicalIndex) Rebuild(graph *schema.Graph) {
	var docs []document
	for name, info := range graph.Tables {
		tableTerms := map[string]struct{}{}
		addTerms(tableTerms, name)
		for _, col := range info.Columns {
			addTerms(tableTerms, col.Name)

			colTerms := map[string]struct{}{}
			addTerms(colTerms, name)
			addTerms(colTerms, col.Name)
			addTerms(colTerms, col.DataType)
			docs = append(docs, document{table: name, column: col.Name, terms: colTerms})
		}
		for _, fk := range info.ForeignKeys {
			addTerms(tableTerms, fk.ToTable)
		}
		docs = append(docs, document{table: name, terms: tableTerms})
	}

	idx.mu.Lock()
	idx.docs = docs
	idx.mu.Unlock()

	logger.Infof("Lexical schema index rebuilt with %d documents", len(docs))
}

// Search returns the topK documents with the highest token overlap against
// the query. Documents with zero overlap are never returned.
func (idx *LexicalIndex) Search(query string, topK int) []schema.Hit {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 || topK <= 0 {
		return nil
	}

	idx.mu.RLock()
	docs := idx.docs
	idx.mu.RUnlock()

	var hits []schema.Hit
	for _, doc := range docs {
		matched := 0
		for _, term := range queryTerms {
			if _, ok := doc.terms[term]; ok {
				matched++
				continue
			}
			// singular/plural tolerance: "order" matches "orders"
			if _, ok := doc.terms[term+"s"]; ok {
				matched++
				continue
			}
			if strings.HasSuffix(term, "s") {
				if _, ok := doc.terms[strings.TrimSuffix(term, "s")]; ok {
					matched++
				}
			}
		}
		if matched == 0 {
			continue
		}
		score := float64(matched) / float64(len(queryTerms))
		// table-level documents rank slightly above their columns at equal overlap
		if doc.column == "" {
			score += 0.05
		}
		hits = append(hits, schema.Hit{Table: doc.table, Column: doc.column, Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// addTerms splits an identifier on underscores and indexes each part plus
// the whole identifier.
func addTerms(terms map[string]struct{}, identifier string) {
	lower := strings.ToLower(identifier)
	if lower == "" {
		return
	}
	terms[lower] = struct{}{}
	for _, part := range strings.Split(lower, "_") {
		if part != "" {
			terms[part] = struct{}{}
		}
	}
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	seen := map[string]struct{}{}
	var out []string
	for _, f := range fields {
		if len(f) < 2 || isStopword(f) {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

var stopwords = map[string]struct{}{
	"the": {}, "of": {}, "and": {}, "all": {}, "show": {}, "me": {},
	"list": {}, "what": {}, "which": {}, "how": {}, "many": {}, "much": {},
	"for": {}, "with": {}, "from": {}, "are": {}, "is": {}, "in": {},
	"by": {}, "to": {}, "per": {}, "each": {}, "their": {}, "my": {},
}

func isStopword(s string) bool {
	_, ok := stopwords[s]
	return ok
}
