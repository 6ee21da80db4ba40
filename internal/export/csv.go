package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"flussi/internal/core"
)

// Encoding is the character encoding of CSV output.
type Encoding string

const (
	EncodingUTF8BOM     Encoding = "utf-8-bom"
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1252 Encoding = "windows-1252"
)

const utf8BOM = "\ufeff"

// ParseEncoding accepts the configured encoding name; empty means UTF-8 with BOM.
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(strings.ToLower(strings.TrimSpace(s))); e {
	case "":
		return EncodingUTF8BOM, nil
	case EncodingUTF8BOM, EncodingUTF8, EncodingWindows1252:
		return e, nil
	default:
		return "", fmt.Errorf("unsupported csv encoding %q", s)
	}
}

func nopFlush() error { return nil }

// encodeWriter wraps w so that text is written in enc. flush must be called
// once everything has been written.
func encodeWriter(w io.Writer, enc Encoding) (out io.Writer, flush func() error, err error) {
	switch enc {
	case EncodingUTF8BOM, "":
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return nil, nil, err
		}
		return w, nopFlush, nil
	case EncodingUTF8:
		return w, nopFlush, nil
	case EncodingWindows1252:
		tw := transform.NewWriter(w, encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()))
		return tw, tw.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported csv encoding %q", enc)
	}
}

// WriteDetailCSV writes one row per entry.
func WriteDetailCSV(w io.Writer, entries []core.Entry, enc Encoding) error {
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, detailRecord(e))
	}
	return writeCSV(w, DetailHeader, records, enc)
}

// WriteSummaryCSV writes one row per period summary.
func WriteSummaryCSV(w io.Writer, summaries []core.PeriodSummary, enc Encoding) error {
	records := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		records = append(records, summaryRecord(s))
	}
	return writeCSV(w, SummaryHeader, records, enc)
}

func writeCSV(w io.Writer, header []string, records [][]string, enc Encoding) error {
	out, flush, err := encodeWriter(w, enc)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return flush()
}

// CSVSink writes the detail and summary tables as two CSV files.
type CSVSink struct {
	Dir      string
	Encoding Encoding
}

func NewCSVSink(dir string, enc Encoding) *CSVSink {
	return &CSVSink{Dir: dir, Encoding: enc}
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(ctx context.Context, rep core.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := writeFile(s.Dir, DetailCSVFile, func(f *os.File) error {
		return WriteDetailCSV(f, rep.Entries, s.Encoding)
	}); err != nil {
		return err
	}
	_, err := writeFile(s.Dir, SummaryCSVFile, func(f *os.File) error {
		return WriteSummaryCSV(f, rep.Summaries, s.Encoding)
	})
	return err
}
