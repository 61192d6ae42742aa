package pipeline

import "testing"

// TestExtract_FencedBlock checks that a fenced code block wins over
// surrounding prose.
func TestExtract_FencedBlock(t *testing.T) {
	chain := newSQLExtractionChain()

	text := "Here is the query you asked for:\n\n```sql\nSELECT order_id\nFROM orders\n```\n\nLet me know if you need changes."
	got := chain.Extract(text)

	want := "SELECT order_id\nFROM orders"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

// TestExtract_FencedBlockWithoutLanguageTag checks plain ``` fences.
func TestExtract_FencedBlockWithoutLanguageTag(t *testing.T) {
	chain := newSQLExtractionChain()

	got := chain.Extract("```\nSELECT 1\n```")
	if got != "SELECT 1" {
		t.Errorf("Expected SELECT 1, got %q", got)
	}
}

// TestExtract_SelectRun checks the fallback that pulls a SELECT run out of
// unfenced prose, stopping at the first blank line.
func TestExtract_SelectRun(t *testing.T) {
	chain := newSQLExtractionChain()

	text := "Sure. SELECT customer_name FROM customers WHERE email IS NOT NULL\n\nThis filters out customers without an email."
	got := chain.Extract(text)

	want := "SELECT customer_name FROM customers WHERE email IS NOT NULL"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

// TestExtract_RawSelect checks that output which already is a bare SELECT
// statement passes through unchanged.
func TestExtract_RawSelect(t *testing.T) {
	chain := newSQLExtractionChain()

	got := chain.Extract("SELECT COUNT(*) FROM orders")
	if got != "SELECT COUNT(*) FROM orders" {
		t.Errorf("Unexpected extraction: %q", got)
	}
}

// TestExtract_TrailingSemicolonStripped checks statement normalization.
func TestExtract_TrailingSemicolonStripped(t *testing.T) {
	chain := newSQLExtractionChain()

	got := chain.Extract("```sql\nSELECT 1;\n```")
	if got != "SELECT 1" {
		t.Errorf("Expected trailing semicolon stripped, got %q", got)
	}
}

// TestExtract_NonSelectFencedBlockSkipped checks that a fenced block not
// containing a SELECT does not satisfy the chain by itself.
func TestExtract_NonSelectFencedBlockSkipped(t *testing.T) {
	chain := newSQLExtractionChain()

	got := chain.Extract("```\nDROP TABLE orders\n```")
	if got != "" {
		t.Errorf("Expected no extraction, got %q", got)
	}
}

// TestExtract_NoSQL checks that pure prose yields nothing.
func TestExtract_NoSQL(t *testing.T) {
	chain := newSQLExtractionChain()

	got := chain.Extract("I cannot answer that question with the given schema.")
	if got != "" {
		t.Errorf("Expected empty result, got %q", got)
	}
}

// TestExtract_CaseInsensitiveSelect checks lowercase oracle output.
func TestExtract_CaseInsensitiveSelect(t *testing.T) {
	chain := newSQLExtractionChain()

	got := chain.Extract("select order_id from orders")
	if got != "select order_id from orders" {
		t.Errorf("Unexpected extraction: %q", got)
	}
}
