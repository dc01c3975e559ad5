package stats

import (
	"strconv"

	"fintrack/internal/core"
)

// Period selects the bucketing scheme for trend data.
type Period string

const (
	PeriodWeek  Period = "week"  // weekday short name: Mon, Tue, ...
	PeriodMonth Period = "month" // day of month as a string: "1".."31"
	PeriodYear  Period = "year"  // month short name: Jan, Feb, ...
)

// TrendPoint is one labeled bucket of summed expense amounts.
type TrendPoint struct {
	Label  string
	Amount core.Money
}

// Trend groups Expense-type transactions into buckets keyed by the
// period's label scheme and sums amounts per bucket. Bucket order is the
// first-seen order of each label while scanning the input, mirroring how
// the dashboard charts accumulate their series. An unknown period yields
// an empty trend.
func Trend(transactions []core.Transaction, period Period) []TrendPoint {
	var points []TrendPoint
	index := make(map[string]int)

	for _, t := range transactions {
		if t.Type != core.Expense {
			continue
		}
		var label string
		switch period {
		case PeriodWeek:
			label = t.Date.Weekday().String()[:3]
		case PeriodMonth:
			label = strconv.Itoa(t.Date.Day())
		case PeriodYear:
			label = t.Date.Month().String()[:3]
		default:
			return nil
		}
		i, ok := index[label]
		if !ok {
			i = len(points)
			index[label] = i
			points = append(points, TrendPoint{Label: label})
		}
		points[i].Amount.Cents += t.Amount.Cents
	}

	return points
}
