package policy

import (
	"regexp"
	"strings"
)

// ReferencedObjects lists the tables and columns a statement touches.
// Column entries may be qualified as "table.column".
type ReferencedObjects struct {
	Tables  []string
	Columns []string
}

// ObjectExtractor pulls referenced tables and columns out of a SQL
// statement. The default implementation is a lexical heuristic; a real SQL
// parser can be substituted without touching the policy decision logic.
type ObjectExtractor interface {
	ExtractReferencedObjects(sql string) ReferencedObjects
}

var (
	fromPattern   = regexp.MustCompile(`\bfrom\s+([a-z_][a-z0-9_]*(?:\.[a-z_][a-z0-9_]*)?)(?:\s+(?:as\s+)?([a-z_][a-z0-9_]*))?`)
	joinPattern   = regexp.MustCompile(`\bjoin\s+([a-z_][a-z0-9_]*(?:\.[a-z_][a-z0-9_]*)?)(?:\s+(?:as\s+)?([a-z_][a-z0-9_]*))?`)
	selectPattern = regexp.MustCompile(`(?s)\bselect\s+(.*?)\s+from\b`)
	columnPattern = regexp.MustCompile(`[a-z_][a-z0-9_]*(?:\.[a-z_][a-z0-9_]*)?`)
)

// sqlKeywords are SELECT-clause tokens that the column pattern matches but
// are not column references.
var sqlKeywords = map[string]struct{}{
	"distinct": {}, "as": {}, "case": {}, "when": {}, "then": {}, "else": {},
	"end": {}, "and": {}, "or": {}, "not": {}, "null": {}, "is": {},
	"count": {}, "sum": {}, "avg": {}, "min": {}, "max": {},
	"concat": {}, "coalesce": {}, "ifnull": {}, "round": {}, "cast": {},
	"date": {}, "year": {}, "month": {}, "day": {}, "interval": {},
}

// clauseKeywords are tokens that can directly follow a table reference and
// must not be mistaken for its alias.
var clauseKeywords = map[string]struct{}{
	"where": {}, "on": {}, "join": {}, "inner": {}, "left": {}, "right": {},
	"cross": {}, "outer": {}, "full": {}, "natural": {}, "using": {},
	"group": {}, "order": {}, "having": {}, "limit": {}, "union": {},
	"set": {}, "for": {},
}

// lexicalExtractor extracts tables from FROM/JOIN clauses and columns from
// the SELECT clause with regular expressions. It overmatches rather than
// undermatches; enforcement at the connection still applies either way.
type lexicalExtractor struct{}

// NewLexicalExtractor creates the default regex-based object extractor.
func NewLexicalExtractor() ObjectExtractor {
	return lexicalExtractor{}
}

func (lexicalExtractor) ExtractReferencedObjects(sql string) ReferencedObjects {
	lower := strings.ToLower(sql)

	var objects ReferencedObjects
	seenTables := map[string]struct{}{}
	aliases := map[string]string{}
	for _, pattern := range []*regexp.Regexp{fromPattern, joinPattern} {
		for _, m := range pattern.FindAllStringSubmatch(lower, -1) {
			name := m[1]
			if alias := m[2]; alias != "" {
				if _, keyword := clauseKeywords[alias]; !keyword {
					aliases[alias] = name
				}
			}
			if _, ok := seenTables[name]; ok {
				continue
			}
			seenTables[name] = struct{}{}
			objects.Tables = append(objects.Tables, name)
		}
	}

	if m := selectPattern.FindStringSubmatch(lower); m != nil {
		seenColumns := map[string]struct{}{}
		for _, candidate := range columnPattern.FindAllString(m[1], -1) {
			bare := candidate
			if idx := strings.IndexByte(candidate, '.'); idx >= 0 {
				bare = candidate[idx+1:]
				// resolve alias qualifiers to the table they stand for
				if table, ok := aliases[candidate[:idx]]; ok {
					candidate = table + "." + bare
				}
			}
			if _, ok := sqlKeywords[bare]; ok {
				continue
			}
			if _, ok := seenColumns[candidate]; ok {
				continue
			}
			seenColumns[candidate] = struct{}{}
			objects.Columns = append(objects.Columns, candidate)
		}
	}

	return objects
}
