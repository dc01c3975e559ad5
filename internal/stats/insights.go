package stats

import "fmt"

// Insight severity and type labels, as rendered by the dashboard.
const (
	InsightWarning = "warning"
	InsightInfo    = "info"

	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Insight is one rule-derived observation about a Statistics value.
type Insight struct {
	Type     string
	Message  string
	Severity string
}

// Insights evaluates the spending rules against a computed summary.
// Rules run in declaration order and are independent: more than one may
// fire, and the result order is always the rule order.
func Insights(s Statistics) []Insight {
	var insights []Insight

	if float64(s.TotalExpenses.Cents) > float64(s.TotalIncome.Cents)*0.8 {
		insights = append(insights, Insight{
			Type:     InsightWarning,
			Message:  "Your expenses are approaching 80% of your income",
			Severity: SeverityHigh,
		})
	}

	if len(s.TopCategories) > 0 && s.TopCategories[0].Percentage > 50 {
		insights = append(insights, Insight{
			Type:     InsightInfo,
			Message:  fmt.Sprintf("%s is your biggest expense category", s.TopCategories[0].Category),
			Severity: SeverityMedium,
		})
	}

	if s.TransactionCount == 0 {
		insights = append(insights, Insight{
			Type:     InsightInfo,
			Message:  "No transactions found for the selected period",
			Severity: SeverityLow,
		})
	}

	return insights
}
