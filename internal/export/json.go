package export

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"flussi/internal/core"
)

// Document is the combined JSON output of a run.
type Document struct {
	GeneratedAt string         `json:"generato_il"`
	RunID       string         `json:"run_id,omitempty"`
	Source      string         `json:"fonte,omitempty"`
	Period      DocumentPeriod `json:"periodo"`
	Summaries   []SummaryRow   `json:"riepilogo_mensile"`
	Entries     []EntryRow     `json:"dettaglio_categorie"`
	Advisories  []AdvisoryRow  `json:"avvisi,omitempty"`
	Skipped     []string       `json:"fogli_saltati,omitempty"`
}

// DocumentPeriod is the covered range as display labels; null when empty.
type DocumentPeriod struct {
	From *string `json:"da"`
	To   *string `json:"a"`
}

type SummaryRow struct {
	Period       string      `json:"data"`
	PeriodLabel  string      `json:"data_label"`
	Month        int         `json:"mese"`
	Year         int         `json:"anno"`
	TotalIncome  json.Number `json:"totale_entrate"`
	TotalExpense json.Number `json:"totale_uscite"`
	Balance      json.Number `json:"saldo"`
}

type EntryRow struct {
	Period      string      `json:"data"`
	PeriodLabel string      `json:"data_label"`
	Month       int         `json:"mese"`
	Year        int         `json:"anno"`
	Category    string      `json:"categoria"`
	Subcategory *string     `json:"sottocategoria"`
	Amount      json.Number `json:"importo"`
	Kind        string      `json:"tipo"`
}

type AdvisoryRow struct {
	Sheet   string `json:"foglio,omitempty"`
	Code    string `json:"codice"`
	Message string `json:"messaggio"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// NewDocument converts a report to its JSON document form.
func NewDocument(rep core.Report) Document {
	doc := Document{
		GeneratedAt: rep.GeneratedAt.Format(time.RFC3339),
		RunID:       rep.RunID,
		Source:      rep.Source,
		Summaries:   make([]SummaryRow, 0, len(rep.Summaries)),
		Entries:     make([]EntryRow, 0, len(rep.Entries)),
		Skipped:     rep.Skipped,
	}
	if first, last, ok := rep.Range(); ok {
		from, to := first.Label(), last.Label()
		doc.Period = DocumentPeriod{From: &from, To: &to}
	}
	for _, s := range rep.Summaries {
		doc.Summaries = append(doc.Summaries, SummaryRow{
			Period:       s.Period.String(),
			PeriodLabel:  s.Period.Label(),
			Month:        s.Period.Month,
			Year:         s.Period.Year,
			TotalIncome:  number(s.TotalIncome),
			TotalExpense: number(s.TotalExpense),
			Balance:      number(s.Balance),
		})
	}
	for _, e := range rep.Entries {
		row := EntryRow{
			Period:      e.Period.String(),
			PeriodLabel: e.Period.Label(),
			Month:       e.Period.Month,
			Year:        e.Period.Year,
			Category:    e.Category,
			Amount:      number(e.Amount),
			Kind:        string(e.Kind),
		}
		if e.HasSubcategory() {
			sub := e.Subcategory
			row.Subcategory = &sub
		}
		doc.Entries = append(doc.Entries, row)
	}
	for _, a := range rep.Advisories {
		doc.Advisories = append(doc.Advisories, AdvisoryRow{Sheet: a.Sheet, Code: string(a.Code), Message: a.Message})
	}
	return doc
}

// WriteJSON writes the indented document of rep to w.
func WriteJSON(w io.Writer, rep core.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(NewDocument(rep))
}

// JSONSink writes the combined document to a file.
type JSONSink struct {
	Dir string
}

func NewJSONSink(dir string) *JSONSink {
	return &JSONSink{Dir: dir}
}

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Write(ctx context.Context, rep core.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := writeFile(s.Dir, JSONFile, func(f *os.File) error {
		return WriteJSON(f, rep)
	})
	return err
}
