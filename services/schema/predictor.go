package schema

import (
	"context"
	"fmt"
	"strings"

	"genbiapi/pkg/logger"
	"genbiapi/services/oracle"
)

// TablePredictor narrows a query context down to the tables actually needed
// for one question. Table selection is delegated to the completion oracle,
// constrained to the table names present in the context; the oracle's answer
// is never accepted verbatim.
type TablePredictor struct {
	oracle oracle.CompletionOracle
}

// NewTablePredictor creates a predictor backed by the given oracle.
func NewTablePredictor(o oracle.CompletionOracle) *TablePredictor {
	return &TablePredictor{oracle: o}
}

// PredictRequiredTables asks the oracle which of the context's tables are
// essential to answer the question and intersects the answer with the
// context. Anything outside the context is discarded. When the oracle fails
// or the validated set comes back empty, the full context table set is
// returned instead: an empty prediction is treated as prediction failure,
// never as "zero tables needed".
func (tp *TablePredictor) PredictRequiredTables(ctx context.Context, question string, qc *QueryContext) []string {
	contextTables := qc.TableNames()
	if len(contextTables) == 0 {
		return nil
	}

	prompt := buildTableSelectionPrompt(question, contextTables)
	answer, err := tp.oracle.Complete(ctx, prompt)
	if err != nil {
		logger.Warnf("Table prediction failed, falling back to full context: %v", err)
		return contextTables
	}

	predicted := parseTableList(answer, qc)
	if len(predicted) == 0 {
		logger.Warnf("Table prediction returned no recognized tables, falling back to full context")
		return contextTables
	}

	logger.Debugf("Predicted required tables: %v", predicted)
	return predicted
}

func buildTableSelectionPrompt(question string, tables []string) string {
	return fmt.Sprintf(`You are selecting database tables needed to answer a question.

Available tables:
%s

Question: %s

Reply with a comma-separated list of the table names needed to answer the
question. Choose only from the available tables above. Reply with the list
only, no explanation.`, strings.Join(tables, "\n"), question)
}

// parseTableList splits the oracle's free-text answer on commas and
// newlines and keeps only names present in the context, deduplicated,
// in answer order.
func parseTableList(answer string, qc *QueryContext) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, line := range strings.Split(answer, "\n") {
		for _, part := range strings.Split(line, ",") {
			name := strings.Trim(strings.TrimSpace(part), "`'\".-* ")
			if name == "" {
				continue
			}
			if !qc.Contains(name) {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
