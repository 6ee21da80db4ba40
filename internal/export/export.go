// Package export writes extraction reports to files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"flussi/internal/core"
)

// Default output file names.
const (
	DetailCSVFile  = "flussi_cassa_dettaglio.csv"
	SummaryCSVFile = "flussi_cassa_riepilogo.csv"
	JSONFile       = "flussi_cassa.json"
	XLSXFile       = "flussi_cassa.xlsx"
)

var (
	DetailHeader  = []string{"period", "period_label", "month", "year", "category", "subcategory", "amount", "kind"}
	SummaryHeader = []string{"period", "period_label", "month", "year", "total_income", "total_expense", "balance"}
)

func detailRecord(e core.Entry) []string {
	return []string{
		e.Period.String(),
		e.Period.Label(),
		strconv.Itoa(e.Period.Month),
		strconv.Itoa(e.Period.Year),
		e.Category,
		e.Subcategory,
		e.Amount.String(),
		string(e.Kind),
	}
}

func summaryRecord(s core.PeriodSummary) []string {
	return []string{
		s.Period.String(),
		s.Period.Label(),
		strconv.Itoa(s.Period.Month),
		strconv.Itoa(s.Period.Year),
		s.TotalIncome.StringFixed(2),
		s.TotalExpense.StringFixed(2),
		s.Balance.StringFixed(2),
	}
}

// writeFile creates dir and writes path atomically through a temp file.
func writeFile(dir, name string, write func(f *os.File) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}
