package pivot

import "fmt"

const (
	DefaultFilterMarker  = "esclud"
	DefaultBlankSentinel = "(blank)"
	// DefaultFilterScanRows bounds how far from the top the marker is searched.
	DefaultFilterScanRows = 5
)

// FilterStatus is the per-sheet verdict of the exclusion-filter check.
type FilterStatus string

const (
	FilterPass FilterStatus = "pass"
	FilterFail FilterStatus = "fail"
	FilterWarn FilterStatus = "warn"
)

// FilterResult is the outcome of FilterVerifier.Verify.
type FilterResult struct {
	OK      bool
	Status  FilterStatus
	Message string
	// Value is the active filter value when a marker was found.
	Value string
}

// FilterVerifier checks that a pivot sheet was exported with its exclusion
// filter set to the blank sentinel. It only inspects the grid.
type FilterVerifier struct {
	Marker        string
	BlankSentinel string
	ScanRows      int
}

// NewFilterVerifier returns a verifier; empty arguments fall back to defaults.
func NewFilterVerifier(marker, blankSentinel string) *FilterVerifier {
	if marker == "" {
		marker = DefaultFilterMarker
	}
	if blankSentinel == "" {
		blankSentinel = DefaultBlankSentinel
	}
	return &FilterVerifier{
		Marker:        marker,
		BlankSentinel: blankSentinel,
		ScanRows:      DefaultFilterScanRows,
	}
}

// Verify scans the first ScanRows rows for the marker cell and reads the
// filter value from the cell to its right.
func (v *FilterVerifier) Verify(rows [][]string) FilterResult {
	limit := v.ScanRows
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}

	for r := 0; r < limit; r++ {
		row := rows[r]
		for c := range row {
			text, _ := cell(row, c)
			if text == "" || !containsFold(text, v.Marker) {
				continue
			}
			value, ok := cell(row, c+1)
			if !ok || value == "" {
				return FilterResult{
					OK:      false,
					Status:  FilterFail,
					Message: fmt.Sprintf("filter %q: filter value not found", text),
				}
			}
			if equalFold(value, v.BlankSentinel) {
				return FilterResult{OK: true, Status: FilterPass, Value: value}
			}
			return FilterResult{
				OK:      false,
				Status:  FilterFail,
				Value:   value,
				Message: fmt.Sprintf("filter %q set to %q instead of %q", text, value, v.BlankSentinel),
			}
		}
	}

	return FilterResult{
		OK:      true,
		Status:  FilterWarn,
		Message: fmt.Sprintf("no %q filter found in the first %d rows (different sheet layout?)", v.Marker, limit),
	}
}
