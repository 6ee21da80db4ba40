package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodSummary is the per-month aggregate of the reconstructed entries.
type PeriodSummary struct {
	Period       PeriodKey
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal // keeps the negative sign
	Balance      decimal.Decimal
	// FromGrandTotal is true when Balance comes from the sheet's grand-total row.
	FromGrandTotal bool
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// AdvisoryCode classifies a non-fatal finding.
type AdvisoryCode string

const (
	AdvisoryNoFilterMarker     AdvisoryCode = "no_filter_marker"
	AdvisoryHeaderNotFound     AdvisoryCode = "header_not_found"
	AdvisoryUnparseableAmount  AdvisoryCode = "unparseable_amount"
	AdvisoryAmbiguousOvershoot AdvisoryCode = "ambiguous_overshoot"
	AdvisoryUnmatchedTail      AdvisoryCode = "unmatched_tail"
	AdvisoryPeriodMismatch     AdvisoryCode = "period_mismatch"
	AdvisoryDuplicatePeriod    AdvisoryCode = "duplicate_period"
	AdvisoryGrandTotalMismatch AdvisoryCode = "grand_total_mismatch"
	AdvisoryFuzzySelection     AdvisoryCode = "fuzzy_selection"
	AdvisoryUnknownSelection   AdvisoryCode = "unknown_selection"
)

// Advisory is a degradation surfaced to the caller instead of an error.
type Advisory struct {
	Sheet   string
	Code    AdvisoryCode
	Message string
}

// Report bundles everything one extraction run produces.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Source      string
	Summaries   []PeriodSummary // sorted by period
	Entries     []Entry         // sorted by period, then category
	Advisories  []Advisory
	// Skipped lists candidate sheets that contributed nothing.
	Skipped []string
}

// Range returns the first and last covered period.
func (r *Report) Range() (first, last PeriodKey, ok bool) {
	if r == nil || len(r.Summaries) == 0 {
		return PeriodKey{}, PeriodKey{}, false
	}
	return r.Summaries[0].Period, r.Summaries[len(r.Summaries)-1].Period, true
}
