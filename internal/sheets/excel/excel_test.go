package excel

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	ports "flussi/internal/sheets"
)

func writeWorkbook(t *testing.T, sheets map[string][][]any, order []string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range sheets[name] {
			cellRef, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetSheetRow(name, cellRef, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "flussi.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestReaderXLSX(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"Pivot 07-2024": {
			{"Escludi", "(blank)"},
			{},
			{"Row Labels", "Sum of Importo"},
			{"Casa", -800},
			{"Affitto", -500.5},
			{"Bollette", -299.5},
			{"Grand Total", -800},
		},
		"Note": {{"x"}},
	}, []string{"Pivot 07-2024", "Note"})

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	ctx := context.Background()
	names, err := r.SheetNames(ctx)
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != 2 || names[0] != "Pivot 07-2024" || names[1] != "Note" {
		t.Fatalf("unexpected names: %v", names)
	}

	rows, err := r.ReadSheet(ctx, "Pivot 07-2024")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("got %d rows: %v", len(rows), rows)
	}
	if rows[0][1] != "(blank)" || rows[2][0] != "Row Labels" {
		t.Fatalf("unexpected text cells: %v", rows[:3])
	}
	if rows[3][1] != "-800" || rows[4][1] != "-500.5" {
		t.Fatalf("numbers should come back raw, got %q and %q", rows[3][1], rows[4][1])
	}
}

func TestReaderMissingSheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{"Pivot 01-2024": {{"a"}}}, []string{"Pivot 01-2024"})
	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if _, err := r.ReadSheet(context.Background(), "Pivot 02-2024"); !errors.Is(err, ports.ErrSheetNotFound) {
		t.Fatalf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestReaderCanceledContext(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{"A": {{"a"}}}, []string{"A"})
	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.SheetNames(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	for _, name := range []string{"missing.xlsx", "missing.xls"} {
		if _, err := Open(filepath.Join(t.TempDir(), name)); err == nil {
			t.Fatalf("expected error for %s", name)
		}
	}
}
