package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"flussi/internal/export"
)

var configEnv = []string{
	"FLUSSI_CONFIG", "SOURCE", "EXCEL_PATH", "SHEET_PREFIX", "FILTER_MARKER", "BLANK_SENTINEL",
	"OUTPUT_DIR", "OUTPUT_FORMATS", "CSV_ENCODING", "SQLITE_DB_PATH", "AMQP_URL",
	"AMQP_EXCHANGE", "AMQP_ROUTING_KEY", "GOOGLE_SPREADSHEET_ID", "GOOGLE_SERVICE_ACCOUNT_JSON",
	"GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_CACHE_TTL", "SELECTIONS_PATH", "TOP_N",
	"LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

func writePivotWorkbook(t *testing.T, filter string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name string
		rows [][]any
	}{
		{"Pivot 07-2024", [][]any{
			{"Escludi", filter},
			{},
			{"Row Labels", "Sum of Importo"},
			{"Casa", -1200},
			{"Affitto", -800},
			{"Bollette", -400},
			{"Lavoro", 3000},
			{"Grand Total", 1800},
		}},
		{"Pivot 06-2024", [][]any{
			{"Escludi", "(blank)"},
			{},
			{"Row Labels", "Sum of Importo"},
			{"Lavoro", 2500},
			{"Grand Total", 2500},
		}},
	}
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				t.Fatal(err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			t.Fatal(err)
		}
		for r, row := range s.rows {
			ref, _ := excelize.CoordinatesToCellName(1, r+1)
			if err := f.SetSheetRow(s.name, ref, &row); err != nil {
				t.Fatal(err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "Flussi di cassa.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_WritesOutputs(t *testing.T) {
	clearEnv(t)
	t.Setenv("OUTPUT_FORMATS", "csv,json,xlsx")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "db", "flussi.db"))
	out := filepath.Join(t.TempDir(), "out")

	var stdout bytes.Buffer
	args := []string{"-env", filepath.Join(t.TempDir(), "none.env"), "-excel", writePivotWorkbook(t, "(blank)"), "-out", out}
	if err := run(args, &stdout); err != nil {
		t.Fatalf("run() error = %v\n%s", err, stdout.String())
	}

	for _, name := range []string{export.DetailCSVFile, export.SummaryCSVFile, export.JSONFile, export.XLSXFile} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
	text := stdout.String()
	for _, want := range []string{"Period: 06/2024 - 07/2024", "Months: 2", "Best month:  06/2024", "Casa"} {
		if !strings.Contains(text, want) {
			t.Errorf("stdout missing %q:\n%s", want, text)
		}
	}

	stdout.Reset()
	if err := run([]string{"-env", filepath.Join(t.TempDir(), "none.env"), "-runs"}, &stdout); err != nil {
		t.Fatalf("run(-runs) error = %v", err)
	}
	if !strings.Contains(stdout.String(), "2024-06..2024-07") {
		t.Errorf("runs listing = %q", stdout.String())
	}
}

func TestRun_GateFailure(t *testing.T) {
	clearEnv(t)
	out := filepath.Join(t.TempDir(), "out")

	var stdout bytes.Buffer
	args := []string{"-env", filepath.Join(t.TempDir(), "none.env"), "-excel", writePivotWorkbook(t, "TipoX"), "-out", out}
	err := run(args, &stdout)
	if err == nil {
		t.Fatal("run() should fail when a filter is not blank")
	}
	if !strings.Contains(stdout.String(), "Pivot 07-2024") {
		t.Errorf("gate report should name the failing sheet:\n%s", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(out, export.JSONFile)); !os.IsNotExist(err) {
		t.Error("no output should be written after a gate failure")
	}
}

func TestRun_DryRun(t *testing.T) {
	clearEnv(t)
	out := filepath.Join(t.TempDir(), "out")

	var stdout bytes.Buffer
	args := []string{"-env", filepath.Join(t.TempDir(), "none.env"), "-excel", writePivotWorkbook(t, "(blank)"), "-out", out, "-dry-run"}
	if err := run(args, &stdout); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, export.DetailCSVFile)); !os.IsNotExist(err) {
		t.Error("dry run should not write outputs")
	}
}
