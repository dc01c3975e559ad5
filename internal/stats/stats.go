// Package stats is the derived-statistics engine: pure functions that
// fold a transaction list into totals, category breakdowns, trend buckets
// and rule-based insights. Nothing here mutates its input or touches the
// clock; callers pass the reference time explicitly so results are
// deterministic and repeatable.
package stats

import (
	"math"
	"sort"
	"time"

	"fintrack/internal/core"
)

// TimeWindow names a recency cutoff for filtering transactions.
type TimeWindow string

const (
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
	WindowYear  TimeWindow = "year"
	WindowAll   TimeWindow = "all"
)

// CategoryStat is one row of the expense-by-category breakdown.
// Percentage is the category's share of total expenses, rounded to one
// decimal place, and 0 when there are no expenses at all.
type CategoryStat struct {
	Category   string
	Amount     core.Money
	Percentage float64
}

// Statistics is the summary the engine derives from a transaction list.
// NetBalance may be negative; totals are always non-negative.
type Statistics struct {
	TotalIncome        core.Money
	TotalExpenses      core.Money
	NetBalance         core.Money
	TopCategories      []CategoryStat
	TransactionCount   int
	AverageTransaction core.Money
}

// Compute folds the transactions within the window (relative to now) into
// a Statistics value. The window cutoff follows calendar arithmetic:
// week = now-7d, month = now minus one calendar month, year = now minus
// one calendar year (time.AddDate normalization), all = no cutoff.
// Records dated exactly at the cutoff are retained.
func Compute(transactions []core.Transaction, window TimeWindow, now time.Time) Statistics {
	filtered := filterWindow(transactions, window, now)

	var s Statistics
	s.TransactionCount = len(filtered)

	// Category sums, preserving first-encountered order so equal amounts
	// keep a stable rank.
	catIndex := make(map[string]int)
	for _, t := range filtered {
		switch t.Type {
		case core.Income:
			s.TotalIncome.Cents += t.Amount.Cents
		case core.Expense:
			s.TotalExpenses.Cents += t.Amount.Cents
			i, ok := catIndex[t.Category]
			if !ok {
				i = len(s.TopCategories)
				catIndex[t.Category] = i
				s.TopCategories = append(s.TopCategories, CategoryStat{Category: t.Category})
			}
			s.TopCategories[i].Amount.Cents += t.Amount.Cents
		}
	}
	s.NetBalance.Cents = s.TotalIncome.Cents - s.TotalExpenses.Cents

	for i := range s.TopCategories {
		if s.TotalExpenses.Cents > 0 {
			share := float64(s.TopCategories[i].Amount.Cents) / float64(s.TotalExpenses.Cents) * 100
			s.TopCategories[i].Percentage = round1(share)
		}
	}
	sort.SliceStable(s.TopCategories, func(i, j int) bool {
		return s.TopCategories[i].Amount.Cents > s.TopCategories[j].Amount.Cents
	})

	if s.TransactionCount > 0 {
		total := s.TotalIncome.Cents + s.TotalExpenses.Cents
		s.AverageTransaction.Cents = int64(math.Round(float64(total) / float64(s.TransactionCount)))
	}

	return s
}

// PercentageChange reports the relative change between two values as a
// percentage rounded to one decimal. A zero previous value yields 100
// when current is positive, 0 otherwise.
func PercentageChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return round1((current - previous) / math.Abs(previous) * 100)
}

func filterWindow(transactions []core.Transaction, window TimeWindow, now time.Time) []core.Transaction {
	if window == WindowAll || window == "" {
		return transactions
	}
	var cutoff time.Time
	switch window {
	case WindowWeek:
		cutoff = now.AddDate(0, 0, -7)
	case WindowMonth:
		cutoff = now.AddDate(0, -1, 0)
	case WindowYear:
		cutoff = now.AddDate(-1, 0, 0)
	default:
		// Unknown windows behave like "all" rather than silently dropping
		// everything.
		return transactions
	}
	out := make([]core.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if !t.Date.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
