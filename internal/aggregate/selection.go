package aggregate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/schollz/closestmatch"
	"github.com/shopspring/decimal"

	"flussi/internal/core"
)

// AllSubcategories in the subcategory column selects every subcategory.
const AllSubcategories = "*"

var ErrInvalidSelections = errors.New("invalid selections file")

// Selection names an expense category to chart and the subcategories to
// include. All means every subcategory found in the data.
type Selection struct {
	Category      string
	Subcategories []string
	All           bool
}

// LoadSelections reads a selections CSV file (see ParseSelections).
func LoadSelections(path string) ([]Selection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open selections: %w", err)
	}
	defer f.Close()
	return ParseSelections(f)
}

// ParseSelections reads rows of a Categoria,Sottocategoria CSV. Underscores
// stand for spaces. Rows of the same category are merged, keeping the order
// in which categories first appear.
func ParseSelections(r io.Reader) ([]Selection, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSelections, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidSelections)
	}

	catCol, subCol := -1, -1
	for i, h := range records[0] {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "categoria":
			catCol = i
		case "sottocategoria":
			subCol = i
		}
	}
	if catCol < 0 || subCol < 0 {
		return nil, fmt.Errorf("%w: header must contain Categoria and Sottocategoria", ErrInvalidSelections)
	}

	var out []Selection
	index := make(map[string]int)
	for n, rec := range records[1:] {
		if catCol >= len(rec) || subCol >= len(rec) {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrInvalidSelections, n+2, len(rec))
		}
		cat := unescapeName(rec[catCol])
		sub := unescapeName(rec[subCol])
		if cat == "" {
			continue
		}
		i, ok := index[strings.ToLower(cat)]
		if !ok {
			i = len(out)
			index[strings.ToLower(cat)] = i
			out = append(out, Selection{Category: cat})
		}
		switch {
		case sub == AllSubcategories:
			out[i].All = true
		case sub != "":
			out[i].Subcategories = append(out[i].Subcategories, sub)
		}
	}
	return out, nil
}

func unescapeName(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "_", " "))
}

// Series is the monthly breakdown of one selected expense category, with
// amounts as positive values.
type Series struct {
	// Requested is the category as written in the selection; Category is the
	// name it resolved to in the data.
	Requested string
	Category  string
	All       bool

	// Periods lists the months with data, ascending.
	Periods []core.PeriodKey
	// Subcategories is ordered by total, largest first.
	Subcategories []string
	// Values[sub][i] is the amount of sub in Periods[i].
	Values map[string][]decimal.Decimal

	Total       decimal.Decimal
	MonthlyMean decimal.Decimal
	MaxPeriod   core.PeriodKey
	MaxAmount   decimal.Decimal
}

// MonthTotal is the sum of all subcategories in Periods[i].
func (s Series) MonthTotal(i int) decimal.Decimal {
	var sum decimal.Decimal
	for _, sub := range s.Subcategories {
		sum = sum.Add(s.Values[sub][i])
	}
	return sum
}

// BuildSeries resolves each selection against the expense categories of the
// report and computes its series. Names are matched case-insensitively first
// and then by closest match; fuzzy and unresolved names yield advisories.
// Selections without matching data produce no series.
func BuildSeries(r core.Report, selections []Selection) ([]Series, []core.Advisory) {
	var names []string
	byFold := make(map[string]string)
	for _, e := range r.Entries {
		if e.Kind != core.Expense {
			continue
		}
		key := strings.ToLower(e.Category)
		if _, ok := byFold[key]; !ok {
			byFold[key] = e.Category
			names = append(names, e.Category)
		}
	}

	var matcher *closestmatch.ClosestMatch
	if len(names) > 0 {
		matcher = closestmatch.New(names, []int{2, 3})
	}

	var (
		out        []Series
		advisories []core.Advisory
	)
	for _, sel := range selections {
		name, ok := byFold[strings.ToLower(sel.Category)]
		if !ok && matcher != nil {
			if guess := matcher.Closest(sel.Category); guess != "" {
				name, ok = guess, true
				advisories = append(advisories, core.Advisory{
					Code:    core.AdvisoryFuzzySelection,
					Message: fmt.Sprintf("selection %q matched to category %q", sel.Category, guess),
				})
			}
		}
		if !ok {
			advisories = append(advisories, core.Advisory{
				Code:    core.AdvisoryUnknownSelection,
				Message: fmt.Sprintf("selection %q matches no expense category", sel.Category),
			})
			continue
		}
		if s, ok := buildSeries(r.Entries, name, sel); ok {
			out = append(out, s)
		}
	}
	return out, advisories
}

func buildSeries(entries []core.Entry, category string, sel Selection) (Series, bool) {
	wanted := make(map[string]bool, len(sel.Subcategories))
	for _, sub := range sel.Subcategories {
		wanted[strings.ToLower(sub)] = true
	}

	type cellKey struct {
		period core.PeriodKey
		sub    string
	}
	cells := make(map[cellKey]decimal.Decimal)
	subTotals := make(map[string]decimal.Decimal)
	periodSeen := make(map[core.PeriodKey]bool)
	var periods []core.PeriodKey
	var subs []string

	for _, e := range entries {
		if e.Category != category || e.Kind != core.Expense || !e.HasSubcategory() {
			continue
		}
		if !sel.All && !wanted[strings.ToLower(e.Subcategory)] {
			continue
		}
		amount := e.Amount.Abs()
		k := cellKey{e.Period, e.Subcategory}
		cells[k] = cells[k].Add(amount)
		if _, ok := subTotals[e.Subcategory]; !ok {
			subs = append(subs, e.Subcategory)
		}
		subTotals[e.Subcategory] = subTotals[e.Subcategory].Add(amount)
		if !periodSeen[e.Period] {
			periodSeen[e.Period] = true
			periods = append(periods, e.Period)
		}
	}
	if len(periods) == 0 {
		return Series{}, false
	}

	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	sort.SliceStable(subs, func(i, j int) bool {
		return subTotals[subs[i]].GreaterThan(subTotals[subs[j]])
	})

	s := Series{
		Requested:     sel.Category,
		Category:      category,
		All:           sel.All,
		Periods:       periods,
		Subcategories: subs,
		Values:        make(map[string][]decimal.Decimal, len(subs)),
	}
	for _, sub := range subs {
		row := make([]decimal.Decimal, len(periods))
		for i, p := range periods {
			row[i] = cells[cellKey{p, sub}]
		}
		s.Values[sub] = row
		s.Total = s.Total.Add(subTotals[sub])
	}
	for i, p := range periods {
		month := s.MonthTotal(i)
		if i == 0 || month.GreaterThan(s.MaxAmount) {
			s.MaxPeriod, s.MaxAmount = p, month
		}
	}
	s.MonthlyMean = core.Round2(s.Total.Div(decimal.NewFromInt(int64(len(periods)))))
	return s, true
}
