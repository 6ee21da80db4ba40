package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"flussi/internal/core"
)

// DefaultTopN is the number of categories listed in each ranking.
const DefaultTopN = 5

// Analysis is the run-level overview printed after an extraction.
type Analysis struct {
	Months int

	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal

	AvgIncome  decimal.Decimal
	AvgExpense decimal.Decimal
	AvgBalance decimal.Decimal

	// Best and Worst are the months with the highest and lowest balance.
	// They are zero when Months is 0.
	Best  core.PeriodSummary
	Worst core.PeriodSummary

	TopExpenses []core.CategoryAmount // most negative first
	TopIncome   []core.CategoryAmount // largest first
}

// Analyze computes totals, monthly averages, best and worst month and the
// top-N income and expense categories of a report.
func Analyze(r core.Report, topN int) Analysis {
	if topN <= 0 {
		topN = DefaultTopN
	}
	a := Analysis{Months: len(r.Summaries)}
	if a.Months == 0 {
		return a
	}

	for i, s := range r.Summaries {
		a.TotalIncome = a.TotalIncome.Add(s.TotalIncome)
		a.TotalExpense = a.TotalExpense.Add(s.TotalExpense)
		a.Balance = a.Balance.Add(s.Balance)
		if i == 0 || s.Balance.GreaterThan(a.Best.Balance) {
			a.Best = s
		}
		if i == 0 || s.Balance.LessThan(a.Worst.Balance) {
			a.Worst = s
		}
	}
	n := decimal.NewFromInt(int64(a.Months))
	a.AvgIncome = core.Round2(a.TotalIncome.Div(n))
	a.AvgExpense = core.Round2(a.TotalExpense.Div(n))
	a.AvgBalance = core.Round2(a.Balance.Div(n))

	a.TopExpenses = rankCategories(r.Entries, core.Expense, topN)
	a.TopIncome = rankCategories(r.Entries, core.Income, topN)
	return a
}

func rankCategories(entries []core.Entry, kind core.Kind, topN int) []core.CategoryAmount {
	sums := make(map[string]decimal.Decimal)
	var order []string
	for _, e := range entries {
		if e.Kind != kind {
			continue
		}
		if _, ok := sums[e.Category]; !ok {
			order = append(order, e.Category)
		}
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}

	out := make([]core.CategoryAmount, 0, len(order))
	for _, name := range order {
		out = append(out, core.CategoryAmount{Name: name, Amount: core.Round2(sums[name])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if kind == core.Expense {
			return out[i].Amount.LessThan(out[j].Amount)
		}
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
