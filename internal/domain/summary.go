package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CategorySummary is the derived per-category aggregate shown on the
// dashboard. It is recomputed from the full record set on demand and
// never stored.
type CategorySummary struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Percent  float64 `json:"percent"`
}

// SummarizeByCategory groups records by normalized category name and sums
// their amounts. Grouping is case-insensitive; the display name is the
// first spelling seen. Results are ordered by total, largest first.
func SummarizeByCategory(records []Record) []CategorySummary {
	totals := make(map[string]decimal.Decimal)
	names := make(map[string]string)
	order := make([]string, 0)

	for _, r := range records {
		key := normalizeCategory(r.Category)
		if _, seen := totals[key]; !seen {
			names[key] = strings.TrimSpace(r.Category)
			order = append(order, key)
		}
		totals[key] = totals[key].Add(decimal.NewFromFloat(r.Amount))
	}

	grand := decimal.Zero
	for _, key := range order {
		grand = grand.Add(totals[key])
	}

	summaries := make([]CategorySummary, 0, len(order))
	for _, key := range order {
		total := totals[key]
		percent := decimal.Zero
		if !grand.IsZero() {
			percent = total.Div(grand).Mul(decimal.NewFromInt(100)).Round(1)
		}
		summaries = append(summaries, CategorySummary{
			Category: names[key],
			Total:    total.InexactFloat64(),
			Percent:  percent.InexactFloat64(),
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Total > summaries[j].Total
	})

	return summaries
}

// CandidateTotal sums candidate amounts with decimal arithmetic and
// formats the result for the confirmation message.
func CandidateTotal(candidates []Candidate) string {
	total := decimal.Zero
	for _, c := range candidates {
		total = total.Add(decimal.NewFromFloat(c.Amount))
	}
	return total.String()
}

// normalizeCategory normalizes a category name for grouping.
// Uppercases and trims whitespace for case-insensitive comparison.
func normalizeCategory(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
