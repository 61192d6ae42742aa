package pipeline

import (
	"regexp"
	"strings"
)

// sqlExtractor is one attempt at pulling a SQL statement out of oracle
// free text. It returns the statement and true, or "" and false.
type sqlExtractor func(text string) (string, bool)

// extractionChain is an ordered list of extractors tried until the first
// success. Oracle output is adversarial input; nothing here trusts it.
type extractionChain []sqlExtractor

// Extract runs the chain and returns the first extracted statement, or ""
// when every extractor fails.
func (c extractionChain) Extract(text string) string {
	for _, extract := range c {
		if sql, ok := extract(strings.TrimSpace(text)); ok {
			return strings.TrimSuffix(strings.TrimSpace(sql), ";")
		}
	}
	return ""
}

var (
	fencedBlockPattern = regexp.MustCompile("(?is)```(?:sql)?\\s*(.*?)\\s*```")
	selectRunPattern   = regexp.MustCompile(`(?is)(select\s+.*?)(?:\n\n|$)`)
)

// newSQLExtractionChain builds the default chain: fenced code block first,
// then a bare SELECT run, then the raw text when it already is a SELECT.
func newSQLExtractionChain() extractionChain {
	return extractionChain{
		extractFencedBlock,
		extractSelectRun,
		extractRawSelect,
	}
}

func extractFencedBlock(text string) (string, bool) {
	m := fencedBlockPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	sql := strings.TrimSpace(m[1])
	if sql == "" || !startsWithSelect(sql) {
		return "", false
	}
	return sql, true
}

func extractSelectRun(text string) (string, bool) {
	m := selectRunPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func extractRawSelect(text string) (string, bool) {
	if startsWithSelect(text) {
		return text, true
	}
	return "", false
}

func startsWithSelect(s string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(s)), "SELECT")
}
