package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPeriodKeyValidate(t *testing.T) {
	cases := []struct {
		p  PeriodKey
		ok bool
	}{
		{PeriodKey{Year: 2024, Month: 1}, true},
		{PeriodKey{Year: 2024, Month: 12}, true},
		{PeriodKey{Year: 2024, Month: 0}, false},
		{PeriodKey{Year: 2024, Month: 13}, false},
		{PeriodKey{Year: 0, Month: 5}, false},
	}
	for i, tc := range cases {
		err := tc.p.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPeriodKeyLabels(t *testing.T) {
	p, err := NewPeriodKey(2024, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Label() != "07/2024" {
		t.Fatalf("label: got %q", p.Label())
	}
	if p.String() != "2024-07" {
		t.Fatalf("key: got %q", p.String())
	}
}

func TestPeriodKeyOrdering(t *testing.T) {
	a := PeriodKey{Year: 2023, Month: 12}
	b := PeriodKey{Year: 2024, Month: 1}
	c := PeriodKey{Year: 2024, Month: 2}
	if !a.Before(b) || !b.Before(c) || c.Before(a) {
		t.Fatalf("expected %v < %v < %v", a, b, c)
	}
	if a.Compare(a) != 0 {
		t.Fatalf("expected equal periods to compare as 0")
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(decimal.NewFromInt(2000)) != Income {
		t.Fatalf("positive amount should be income")
	}
	if KindOf(decimal.Zero) != Income {
		t.Fatalf("zero amount should be income")
	}
	if KindOf(decimal.NewFromInt(-1)) != Expense {
		t.Fatalf("negative amount should be expense")
	}
}

func TestEntryValidate(t *testing.T) {
	good := Entry{
		Period:   PeriodKey{Year: 2024, Month: 7},
		Category: "Casa",
		Amount:   decimal.NewFromInt(-500),
		Kind:     Expense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Entry{
		{Period: PeriodKey{Year: 2024, Month: 13}, Category: "Casa", Kind: Expense},
		{Period: PeriodKey{Year: 2024, Month: 7}, Category: " ", Kind: Expense},
		{Period: PeriodKey{Year: 2024, Month: 7}, Category: "Casa", Kind: "other"},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
