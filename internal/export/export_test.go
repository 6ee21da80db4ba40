package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"flussi/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleReport() core.Report {
	jun := core.PeriodKey{Year: 2024, Month: 6}
	jul := core.PeriodKey{Year: 2024, Month: 7}
	return core.Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 8, 1, 9, 30, 0, 0, time.UTC),
		Source:      "Flussi di cassa.xlsx",
		Summaries: []core.PeriodSummary{
			{Period: jun, TotalIncome: dec("3000"), TotalExpense: dec("-1200.5"), Balance: dec("1799.5")},
			{Period: jul, TotalIncome: dec("3000"), TotalExpense: dec("-800"), Balance: dec("2200")},
		},
		Entries: []core.Entry{
			{Period: jun, Category: "Casa", Subcategory: "Affitto", Amount: dec("-800"), Kind: core.Expense},
			{Period: jun, Category: "Casa", Subcategory: "Bollette è luce", Amount: dec("-400.5"), Kind: core.Expense},
			{Period: jun, Category: "Lavoro", Amount: dec("3000"), Kind: core.Income},
			{Period: jul, Category: "Lavoro", Amount: dec("3000"), Kind: core.Income},
		},
		Advisories: []core.Advisory{{Sheet: "Pivot 06-2024", Code: core.AdvisoryNoFilterMarker, Message: "no marker"}},
	}
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    Encoding
		wantErr bool
	}{
		{"", EncodingUTF8BOM, false},
		{"UTF-8", EncodingUTF8, false},
		{" windows-1252 ", EncodingWindows1252, false},
		{"utf-8-bom", EncodingUTF8BOM, false},
		{"latin1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEncoding(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEncoding(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEncoding(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteDetailCSV(t *testing.T) {
	rep := sampleReport()

	t.Run("utf-8 with bom", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteDetailCSV(&buf, rep.Entries, EncodingUTF8BOM); err != nil {
			t.Fatalf("WriteDetailCSV() error = %v", err)
		}
		out := buf.String()
		if !strings.HasPrefix(out, "\ufeff") {
			t.Fatal("output should start with a BOM")
		}
		records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff"))).ReadAll()
		if err != nil {
			t.Fatalf("read back: %v", err)
		}
		if len(records) != 5 {
			t.Fatalf("got %d records, want 5", len(records))
		}
		if strings.Join(records[0], ",") != strings.Join(DetailHeader, ",") {
			t.Errorf("header = %v", records[0])
		}
		want := []string{"2024-06", "06/2024", "6", "2024", "Casa", "Affitto", "-800", "expense"}
		if strings.Join(records[1], "|") != strings.Join(want, "|") {
			t.Errorf("first row = %v, want %v", records[1], want)
		}
		if records[3][5] != "" {
			t.Errorf("flat entry subcategory = %q, want empty", records[3][5])
		}
	})

	t.Run("plain utf-8", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteDetailCSV(&buf, rep.Entries, EncodingUTF8); err != nil {
			t.Fatalf("WriteDetailCSV() error = %v", err)
		}
		if !strings.HasPrefix(buf.String(), "period,") {
			t.Errorf("output starts with %q", buf.String()[:10])
		}
	})

	t.Run("windows-1252", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteDetailCSV(&buf, rep.Entries, EncodingWindows1252); err != nil {
			t.Fatalf("WriteDetailCSV() error = %v", err)
		}
		if !bytes.Contains(buf.Bytes(), []byte{0xe8}) {
			t.Error("è should be encoded as the single byte 0xE8")
		}
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(buf.Bytes())
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !strings.Contains(string(decoded), "Bollette è luce") {
			t.Errorf("decoded output lost the accented label:\n%s", decoded)
		}
	})
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, sampleReport().Summaries, EncodingUTF8); err != nil {
		t.Fatalf("WriteSummaryCSV() error = %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := []string{"2024-06", "06/2024", "6", "2024", "3000.00", "-1200.50", "1799.50"}
	if strings.Join(records[1], "|") != strings.Join(want, "|") {
		t.Errorf("row = %v, want %v", records[1], want)
	}
}

func TestNewDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleReport()); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	periodo := doc["periodo"].(map[string]any)
	if periodo["da"] != "06/2024" || periodo["a"] != "07/2024" {
		t.Errorf("periodo = %v", periodo)
	}
	if doc["generato_il"] != "2024-08-01T09:30:00Z" {
		t.Errorf("generato_il = %v", doc["generato_il"])
	}
	entries := doc["dettaglio_categorie"].([]any)
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	flat := entries[2].(map[string]any)
	if flat["sottocategoria"] != nil {
		t.Errorf("flat entry sottocategoria = %v, want null", flat["sottocategoria"])
	}
	if flat["importo"] != float64(3000) {
		t.Errorf("importo = %v (%T), want number 3000", flat["importo"], flat["importo"])
	}
	summaries := doc["riepilogo_mensile"].([]any)
	if got := summaries[0].(map[string]any)["saldo"]; got != 1799.5 {
		t.Errorf("saldo = %v, want 1799.5", got)
	}
}

func TestNewDocument_EmptyReport(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, core.Report{GeneratedAt: time.Now()}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"da": null`) || !strings.Contains(out, `"riepilogo_mensile": []`) {
		t.Errorf("empty document = %s", out)
	}
}

func TestSinks_WriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	rep := sampleReport()
	ctx := context.Background()

	sinks := []interface {
		Name() string
		Write(context.Context, core.Report) error
	}{
		NewCSVSink(dir, EncodingUTF8BOM),
		NewJSONSink(dir),
		NewXLSXSink(dir),
	}
	for _, s := range sinks {
		if err := s.Write(ctx, rep); err != nil {
			t.Fatalf("%s sink Write() error = %v", s.Name(), err)
		}
	}

	for _, name := range []string{DetailCSVFile, SummaryCSVFile, JSONFile, XLSXFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, ".*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}

	f, err := excelize.OpenFile(filepath.Join(dir, XLSXFile))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	if got := f.GetSheetList(); len(got) != 2 || got[0] != SummarySheet || got[1] != DetailSheet {
		t.Errorf("sheets = %v", got)
	}
	rows, err := f.GetRows(DetailSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 5 || rows[2][4] != "Casa" || rows[2][6] != "-400.5" {
		t.Errorf("detail rows = %v", rows)
	}
}

func TestSink_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	if err := NewJSONSink(dir).Write(ctx, sampleReport()); err == nil {
		t.Fatal("Write() with canceled context should fail")
	}
	if _, err := os.Stat(filepath.Join(dir, JSONFile)); !os.IsNotExist(err) {
		t.Errorf("no file should be written, stat err = %v", err)
	}
}
