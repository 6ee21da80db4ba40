package aggregate

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"flussi/internal/core"
	"flussi/internal/pivot"
)

// Aggregator accumulates the per-sheet reconstructions of one run. It is not
// safe for concurrent use; sheets are folded one at a time.
type Aggregator struct {
	summaries  []core.PeriodSummary
	entries    []core.Entry
	advisories []core.Advisory
	skipped    []string
	seen       map[core.PeriodKey]string
}

func NewAggregator() *Aggregator {
	return &Aggregator{seen: make(map[core.PeriodKey]string)}
}

// Fold adds one reconstructed sheet to the run. Sheets without a period in
// their name are recorded as skipped and reported with an error wrapping
// ErrNoPeriod. A dated sheet without a header still yields a zero summary.
func (a *Aggregator) Fold(sheet string, res pivot.Result) (core.PeriodSummary, error) {
	period, err := ParsePeriod(sheet)
	if err != nil {
		a.skip(sheet, core.Advisory{
			Sheet:   sheet,
			Code:    core.AdvisoryPeriodMismatch,
			Message: fmt.Sprintf("sheet %q skipped: name has no valid MM-YYYY period", sheet),
		})
		return core.PeriodSummary{}, err
	}

	for _, adv := range res.Advisories {
		adv.Sheet = sheet
		a.advisories = append(a.advisories, adv)
	}
	if prev, ok := a.seen[period]; ok {
		a.advisories = append(a.advisories, core.Advisory{
			Sheet:   sheet,
			Code:    core.AdvisoryDuplicatePeriod,
			Message: fmt.Sprintf("period %s already read from sheet %q", period.Label(), prev),
		})
	} else {
		a.seen[period] = sheet
	}

	summary := core.PeriodSummary{Period: period}
	for _, l := range res.Lines {
		if l.Kind == core.Income {
			summary.TotalIncome = summary.TotalIncome.Add(l.Amount)
		} else {
			summary.TotalExpense = summary.TotalExpense.Add(l.Amount)
		}
		a.entries = append(a.entries, core.Entry{
			Period:      period,
			Category:    l.Category,
			Subcategory: l.Subcategory,
			Amount:      l.Amount,
			Kind:        l.Kind,
		})
	}

	computed := summary.TotalIncome.Add(summary.TotalExpense)
	summary.Balance = computed
	if res.GrandTotal.Valid {
		summary.Balance = res.GrandTotal.Decimal
		summary.FromGrandTotal = true
		if !core.WithinTolerance(computed, res.GrandTotal.Decimal) {
			a.advisories = append(a.advisories, core.Advisory{
				Sheet: sheet,
				Code:  core.AdvisoryGrandTotalMismatch,
				Message: fmt.Sprintf("grand total %s differs from computed balance %s by %s, using grand total",
					res.GrandTotal.Decimal.StringFixed(2), computed.StringFixed(2),
					res.GrandTotal.Decimal.Sub(computed).Abs().StringFixed(2)),
			})
		}
	}

	summary.TotalIncome = core.Round2(summary.TotalIncome)
	summary.TotalExpense = core.Round2(summary.TotalExpense)
	summary.Balance = core.Round2(summary.Balance)
	a.summaries = append(a.summaries, summary)
	return summary, nil
}

func (a *Aggregator) skip(sheet string, adv core.Advisory) {
	a.skipped = append(a.skipped, sheet)
	a.advisories = append(a.advisories, adv)
}

// Report returns the folded collections: summaries sorted by period and
// entries sorted by period then category. Ties keep their fold order.
func (a *Aggregator) Report() core.Report {
	summaries := append([]core.PeriodSummary(nil), a.summaries...)
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Period.Before(summaries[j].Period)
	})

	entries := append([]core.Entry(nil), a.entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		if c := entries[i].Period.Compare(entries[j].Period); c != 0 {
			return c < 0
		}
		return entries[i].Category < entries[j].Category
	})

	return core.Report{
		Summaries:  summaries,
		Entries:    entries,
		Advisories: append([]core.Advisory(nil), a.advisories...),
		Skipped:    append([]string(nil), a.skipped...),
	}
}

// Totals sums income and expense over a set of summaries.
func Totals(summaries []core.PeriodSummary) (income, expense decimal.Decimal) {
	for _, s := range summaries {
		income = income.Add(s.TotalIncome)
		expense = expense.Add(s.TotalExpense)
	}
	return income, expense
}
