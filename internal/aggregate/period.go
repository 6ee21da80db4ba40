// Package aggregate folds reconstructed pivot sheets into per-period
// collections and derives the run analysis and category series from them.
package aggregate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"flussi/internal/core"
)

// ErrNoPeriod is returned when a sheet name carries no usable MM-YYYY token.
var ErrNoPeriod = errors.New("no MM-YYYY period in sheet name")

var periodPattern = regexp.MustCompile(`(\d{2})-(\d{4})`)

// ParsePeriod extracts the reporting period from a sheet name such as
// "Pivot 07-2024". The first MM-YYYY token wins.
func ParsePeriod(sheetName string) (core.PeriodKey, error) {
	m := periodPattern.FindStringSubmatch(sheetName)
	if m == nil {
		return core.PeriodKey{}, fmt.Errorf("%w: %q", ErrNoPeriod, sheetName)
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	p, err := core.NewPeriodKey(year, month)
	if err != nil {
		return core.PeriodKey{}, fmt.Errorf("%w: %q: %w", ErrNoPeriod, sheetName, err)
	}
	return p, nil
}
