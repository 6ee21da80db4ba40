package pivot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"flussi/internal/core"
)

// Options describes the layout conventions of the pivot export.
type Options struct {
	// HeaderTokens are cell values (case-insensitive) that mark the header row.
	HeaderTokens []string
	// ValueHeader is a substring of the value column header, also accepted as header marker.
	ValueHeader string
	LabelColumn int
	ValueColumn int
	// Placeholders are labels of rows that carry no data.
	Placeholders    []string
	BlankSentinel   string
	GrandTotalLabel string
}

// DefaultOptions matches the pivot tables of the cash-flow workbook.
func DefaultOptions() Options {
	return Options{
		HeaderTokens:    []string{"categoria", "row labels"},
		ValueHeader:     "sum of importo",
		LabelColumn:     0,
		ValueColumn:     1,
		Placeholders:    []string{"nan"},
		BlankSentinel:   DefaultBlankSentinel,
		GrandTotalLabel: "grand total",
	}
}

// Line is one normalized output record of a sheet, before a period is attached.
type Line struct {
	Category    string
	Subcategory string
	Amount      decimal.Decimal
	Kind        core.Kind
}

// Result is the reconstruction of a single pivot sheet.
type Result struct {
	Lines      []Line
	Groups     []Group
	GrandTotal decimal.NullDecimal
	// HeaderRow is the 0-based header row index, -1 when no header was found.
	HeaderRow  int
	Advisories []core.Advisory
}

// Found reports whether the sheet had a recognizable header.
func (r Result) Found() bool {
	return r.HeaderRow >= 0
}

// Reconstructor rebuilds the category/subcategory hierarchy of pivot sheets.
type Reconstructor struct {
	opts Options
}

func NewReconstructor(opts Options) *Reconstructor {
	if len(opts.HeaderTokens) == 0 && opts.ValueHeader == "" {
		d := DefaultOptions()
		opts.HeaderTokens, opts.ValueHeader = d.HeaderTokens, d.ValueHeader
	}
	if opts.GrandTotalLabel == "" {
		opts.GrandTotalLabel = DefaultOptions().GrandTotalLabel
	}
	if opts.BlankSentinel == "" {
		opts.BlankSentinel = DefaultBlankSentinel
	}
	if opts.ValueColumn == opts.LabelColumn {
		opts.ValueColumn = opts.LabelColumn + 1
	}
	return &Reconstructor{opts: opts}
}

// Reconstruct locates the header, collects the data rows up to the grand
// total and partitions them into groups. It never fails: a sheet without a
// header yields an empty result and an advisory.
func (r *Reconstructor) Reconstruct(rows [][]string) Result {
	res := Result{HeaderRow: r.findHeader(rows)}
	if res.HeaderRow < 0 {
		res.Advisories = append(res.Advisories, core.Advisory{
			Code:    core.AdvisoryHeaderNotFound,
			Message: "no header row found, sheet not parsed",
		})
		return res
	}

	data, total, advisories := r.collect(rows, res.HeaderRow+1)
	res.GrandTotal = total
	res.Advisories = append(res.Advisories, advisories...)

	res.Groups = Partition(data)
	for _, g := range res.Groups {
		res.Lines = append(res.Lines, g.lines()...)
		switch g.Outcome {
		case OutcomeAmbiguousOvershoot:
			res.Advisories = append(res.Advisories, core.Advisory{
				Code: core.AdvisoryAmbiguousOvershoot,
				Message: fmt.Sprintf("category %q (%s, row %d): %d following rows overshot its amount without matching, kept as a flat entry",
					g.Category.Label, g.Category.Amount.StringFixed(2), g.Category.Row+1, len(g.Pending)),
			})
		case OutcomeUnmatchedTail:
			res.Advisories = append(res.Advisories, core.Advisory{
				Code: core.AdvisoryUnmatchedTail,
				Message: fmt.Sprintf("category %q (%s, row %d): data ended after %d following rows without matching its amount, kept as a flat entry",
					g.Category.Label, g.Category.Amount.StringFixed(2), g.Category.Row+1, len(g.Pending)),
			})
		}
	}
	return res
}

func (g Group) lines() []Line {
	kind := g.Kind()
	if g.Outcome != OutcomeMatched {
		return []Line{{Category: g.Category.Label, Amount: g.Category.Amount, Kind: kind}}
	}
	out := make([]Line, 0, len(g.Subcategories))
	for _, sub := range g.Subcategories {
		out = append(out, Line{Category: g.Category.Label, Subcategory: sub.Label, Amount: sub.Amount, Kind: kind})
	}
	return out
}

func (r *Reconstructor) findHeader(rows [][]string) int {
	for i, row := range rows {
		for c := range row {
			text, _ := cell(row, c)
			if text == "" {
				continue
			}
			for _, tok := range r.opts.HeaderTokens {
				if equalFold(text, tok) {
					return i
				}
			}
			if r.opts.ValueHeader != "" && containsFold(text, r.opts.ValueHeader) {
				return i
			}
		}
	}
	return -1
}

func (r *Reconstructor) collect(rows [][]string, start int) ([]RawRow, decimal.NullDecimal, []core.Advisory) {
	var (
		out        []RawRow
		total      decimal.NullDecimal
		advisories []core.Advisory
	)
	for i := start; i < len(rows); i++ {
		label, _ := cell(rows[i], r.opts.LabelColumn)
		if r.isPlaceholder(label) {
			continue
		}
		raw, _ := cell(rows[i], r.opts.ValueColumn)
		amount, bad := core.ParseAmountOrZero(raw)
		if bad {
			advisories = append(advisories, core.Advisory{
				Code:    core.AdvisoryUnparseableAmount,
				Message: fmt.Sprintf("row %d %q: amount %q is not a number, counted as 0", i+1, label, raw),
			})
		}
		if equalFold(label, r.opts.GrandTotalLabel) {
			total = decimal.NewNullDecimal(amount)
			break
		}
		out = append(out, RawRow{Label: label, Amount: amount, Row: i})
	}
	return out, total, advisories
}

func (r *Reconstructor) isPlaceholder(label string) bool {
	if strings.TrimSpace(label) == "" || equalFold(label, r.opts.BlankSentinel) {
		return true
	}
	for _, p := range r.opts.Placeholders {
		if equalFold(label, p) {
			return true
		}
	}
	return false
}
