package pipeline

import "strings"

// queryKind buckets a question by shape so the generation prompt can carry
// worked examples in a matching style.
type queryKind string

const (
	kindRanking     queryKind = "ranking"
	kindAggregation queryKind = "aggregation"
	kindFiltering   queryKind = "filtering"
	kindGeneral     queryKind = "general"
)

type workedExample struct {
	question string
	sql      string
}

var workedExamples = map[queryKind][]workedExample{
	kindRanking: {
		{
			question: "top 5 customers by total spending",
			sql:      "SELECT c.customer_name, SUM(o.total_amount) AS total_spent FROM customers c JOIN orders o ON c.customer_id = o.customer_id GROUP BY c.customer_id, c.customer_name ORDER BY total_spent DESC LIMIT 5",
		},
	},
	kindAggregation: {
		{
			question: "total order amount by month",
			sql:      "SELECT DATE_FORMAT(order_date, '%Y-%m') AS month, SUM(total_amount) AS total FROM orders GROUP BY month ORDER BY month",
		},
	},
	kindFiltering: {
		{
			question: "orders placed in the last 30 days",
			sql:      "SELECT order_id, order_date, total_amount FROM orders WHERE order_date >= DATE_SUB(CURDATE(), INTERVAL 30 DAY) ORDER BY order_date DESC",
		},
	},
	kindGeneral: {
		{
			question: "show recent orders with customer details",
			sql:      "SELECT o.order_id, o.order_date, c.customer_name, o.total_amount FROM orders o JOIN customers c ON o.customer_id = c.customer_id ORDER BY o.order_date DESC LIMIT 20",
		},
	},
}

// classifyQuestion picks a query kind from cheap keyword checks, ordered
// from most to least specific.
func classifyQuestion(question string) queryKind {
	lower := strings.ToLower(question)

	for _, word := range []string{"top", "best", "highest", "lowest", "most", "least", "rank"} {
		if strings.Contains(lower, word) {
			return kindRanking
		}
	}
	for _, word := range []string{"total", "sum", "count", "average", "avg", "per ", " by "} {
		if strings.Contains(lower, word) {
			return kindAggregation
		}
	}
	for _, word := range []string{"where", "only", "filter", "between", "since", "before", "after"} {
		if strings.Contains(lower, word) {
			return kindFiltering
		}
	}
	return kindGeneral
}

// examplesFor renders the worked examples of a kind as prompt text.
func examplesFor(kind queryKind) string {
	examples := workedExamples[kind]
	if len(examples) == 0 {
		examples = workedExamples[kindGeneral]
	}
	var b strings.Builder
	for _, ex := range examples {
		b.WriteString("Question: " + ex.question + "\nSQL: " + ex.sql + "\n")
	}
	return b.String()
}
