package pivot

import (
	"fmt"

	"github.com/shopspring/decimal"

	"flussi/internal/core"
)

// NoiseLabel is the pivot's placeholder for an unnamed subcategory.
const NoiseLabel = "-"

// Outcome is how a category row was resolved by the partition walk.
type Outcome string

const (
	// OutcomeNoSubcategories: the category is a flat entry.
	OutcomeNoSubcategories Outcome = "no_subcategories"
	// OutcomeMatched: the following rows summed to the category amount.
	OutcomeMatched Outcome = "matched"
	// OutcomeAmbiguousOvershoot: rows were accumulated but never matched the
	// category amount. The category is emitted flat and the accumulated rows
	// are walked again as categories.
	OutcomeAmbiguousOvershoot Outcome = "ambiguous_overshoot"
	// OutcomeUnmatchedTail: the rows ran out while accumulating. The category
	// is emitted flat and the accumulated rows are walked again as categories.
	OutcomeUnmatchedTail Outcome = "unmatched_tail"
)

// RawRow is one data row of a pivot sheet.
type RawRow struct {
	Label  string
	Amount decimal.Decimal
	// Row is the 0-based index of the row in the source grid.
	Row int
}

// Group is a category row and the subcategory rows attributed to it.
type Group struct {
	Category      RawRow
	Subcategories []RawRow
	Outcome       Outcome
	// Terminator is set when a "-" row closed a category without subcategories.
	Terminator bool
	// Pending holds the rows accumulated before an overshoot or the end of
	// the rows.
	Pending []RawRow
}

// Kind is the flow direction shared by the category and its subcategories.
func (g Group) Kind() core.Kind {
	return core.KindOf(g.Category.Amount)
}

type partitionState string

const (
	stateExpectCategory partitionState = "EXPECT_CATEGORY"
	stateAccumulating   partitionState = "ACCUMULATING"
	stateMatched        partitionState = "MATCHED"
	stateOvershoot      partitionState = "OVERSHOOT"
	stateExhausted      partitionState = "EXHAUSTED"
	stateDone           partitionState = "DONE"
)

func isAllowedTransition(from, to partitionState) bool {
	switch from {
	case stateExpectCategory:
		return to == stateExpectCategory || to == stateAccumulating || to == stateDone
	case stateAccumulating:
		return to == stateAccumulating || to == stateMatched || to == stateOvershoot || to == stateExhausted
	case stateMatched, stateOvershoot, stateExhausted:
		return to == stateExpectCategory
	default:
		return false
	}
}

// partitioner walks the rows left to right with two cursors: pos is the
// candidate category row, next is the look-ahead row.
type partitioner struct {
	rows      []RawRow
	tolerance decimal.Decimal

	pos  int
	next int
	cur  Group
	sum  decimal.Decimal

	groups []Group
}

// Partition splits ordered rows into category groups using the running-sum
// heuristic. Rows are never reordered; every non-noise row ends up either
// as a category or as a subcategory of exactly one group.
func Partition(rows []RawRow) []Group {
	p := &partitioner{rows: rows, tolerance: core.Tolerance}
	return p.run()
}

func (p *partitioner) run() []Group {
	state := stateExpectCategory
	for state != stateDone {
		var to partitionState
		switch state {
		case stateExpectCategory:
			to = p.expectCategory()
		case stateAccumulating:
			to = p.accumulate()
		case stateMatched:
			to = p.closeMatched()
		case stateOvershoot:
			to = p.closeUnmatched(OutcomeAmbiguousOvershoot)
		case stateExhausted:
			to = p.closeUnmatched(OutcomeUnmatchedTail)
		}
		if !isAllowedTransition(state, to) {
			panic(fmt.Sprintf("pivot: disallowed partition transition %s -> %s", state, to))
		}
		state = to
	}
	return p.groups
}

func (p *partitioner) expectCategory() partitionState {
	if p.pos >= len(p.rows) {
		return stateDone
	}
	row := p.rows[p.pos]
	if row.Label == NoiseLabel {
		p.pos++
		return stateExpectCategory
	}

	p.cur = Group{Category: row}
	p.sum = decimal.Zero
	p.next = p.pos + 1

	if p.next < len(p.rows) {
		follower := p.rows[p.next]
		if follower.Label == NoiseLabel && core.WithinTolerance(follower.Amount, row.Amount) {
			p.cur.Outcome = OutcomeNoSubcategories
			p.cur.Terminator = true
			p.groups = append(p.groups, p.cur)
			p.pos = p.next + 1
			return stateExpectCategory
		}
	}
	return stateAccumulating
}

func (p *partitioner) accumulate() partitionState {
	if p.next >= len(p.rows) {
		return stateExhausted
	}
	row := p.rows[p.next]
	p.sum = p.sum.Add(row.Amount)

	if core.WithinTolerance(p.sum, p.cur.Category.Amount) {
		p.cur.Subcategories = append(p.cur.Subcategories, row)
		p.next++
		return stateMatched
	}
	if p.sum.Abs().LessThanOrEqual(p.cur.Category.Amount.Abs().Add(p.tolerance)) {
		p.cur.Subcategories = append(p.cur.Subcategories, row)
		p.next++
		return stateAccumulating
	}
	return stateOvershoot
}

func (p *partitioner) closeMatched() partitionState {
	p.cur.Outcome = OutcomeMatched
	p.groups = append(p.groups, p.cur)
	p.pos = p.next
	return stateExpectCategory
}

func (p *partitioner) closeUnmatched(outcome Outcome) partitionState {
	if len(p.cur.Subcategories) > 0 {
		p.cur.Outcome = outcome
		p.cur.Pending = p.cur.Subcategories
	} else {
		p.cur.Outcome = OutcomeNoSubcategories
	}
	p.cur.Subcategories = nil
	p.groups = append(p.groups, p.cur)
	p.pos++
	return stateExpectCategory
}
