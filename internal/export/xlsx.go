package export

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"flussi/internal/core"
)

const (
	SummarySheet = "Riepilogo"
	DetailSheet  = "Dettaglio"
)

// BuildWorkbook lays the report out on a summary and a detail sheet.
// Amounts are written as numbers.
func BuildWorkbook(rep core.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(DetailSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	summary := [][]any{toAny(SummaryHeader)}
	for _, s := range rep.Summaries {
		summary = append(summary, []any{
			s.Period.String(), s.Period.Label(), s.Period.Month, s.Period.Year,
			toFloat(s.TotalIncome), toFloat(s.TotalExpense), toFloat(s.Balance),
		})
	}
	detail := [][]any{toAny(DetailHeader)}
	for _, e := range rep.Entries {
		detail = append(detail, []any{
			e.Period.String(), e.Period.Label(), e.Period.Month, e.Period.Year,
			e.Category, e.Subcategory, toFloat(e.Amount), string(e.Kind),
		})
	}

	for sheet, rows := range map[string][][]any{SummarySheet: summary, DetailSheet: detail} {
		for i, row := range rows {
			cellName, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cellName, &row); err != nil {
				f.Close()
				return nil, fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
			}
		}
	}
	return f, nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// XLSXSink writes the report as an Excel workbook.
type XLSXSink struct {
	Dir string
}

func NewXLSXSink(dir string) *XLSXSink {
	return &XLSXSink{Dir: dir}
}

func (s *XLSXSink) Name() string { return "xlsx" }

func (s *XLSXSink) Write(ctx context.Context, rep core.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wb, err := BuildWorkbook(rep)
	if err != nil {
		return err
	}
	defer wb.Close()

	_, err = writeFile(s.Dir, XLSXFile, func(f *os.File) error {
		return wb.Write(f)
	})
	return err
}
