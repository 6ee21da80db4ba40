package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind is the flow direction of an entry.
	Kind string

	// PeriodKey identifies a reporting month.
	PeriodKey struct {
		Year  int
		Month int // 1-12
	}

	// Entry is one reconstructed leaf fact of a pivot sheet.
	Entry struct {
		Period      PeriodKey
		Category    string
		Subcategory string // empty when the category has no subcategories
		Amount      decimal.Decimal
		Kind        Kind
	}
)

var (
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidYear   = errors.New("invalid year")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidPeriod = errors.New("invalid period")
	ErrEmptyCategory = errors.New("empty category")
)

// KindOf classifies a category amount: zero and positive amounts are income.
func KindOf(categoryAmount decimal.Decimal) Kind {
	if categoryAmount.Sign() >= 0 {
		return Income
	}
	return Expense
}

// NewPeriodKey returns a validated PeriodKey.
func NewPeriodKey(year, month int) (PeriodKey, error) {
	p := PeriodKey{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return PeriodKey{}, err
	}
	return p, nil
}

func (p PeriodKey) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1 || p.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// Label returns the display label, e.g. "07/2024".
func (p PeriodKey) Label() string {
	return fmt.Sprintf("%02d/%04d", p.Month, p.Year)
}

// String returns the sortable key, e.g. "2024-07".
func (p PeriodKey) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Compare orders periods by year, then month.
func (p PeriodKey) Compare(o PeriodKey) int {
	switch {
	case p.Year != o.Year:
		if p.Year < o.Year {
			return -1
		}
		return 1
	case p.Month != o.Month:
		if p.Month < o.Month {
			return -1
		}
		return 1
	}
	return 0
}

func (p PeriodKey) Before(o PeriodKey) bool {
	return p.Compare(o) < 0
}

// HasSubcategory reports whether the entry is a subcategory line.
func (e Entry) HasSubcategory() bool {
	return e.Subcategory != ""
}

func (e Entry) Validate() error {
	if err := e.Period.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Kind != Income && e.Kind != Expense {
		return errors.New("invalid kind")
	}
	return nil
}
