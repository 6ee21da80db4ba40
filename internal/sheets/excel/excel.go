// Package excel reads pivot workbooks from local spreadsheet files: .xlsx
// through excelize and legacy .xls through xlsReader.
package excel

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	ports "flussi/internal/sheets"
)

// Reader serves one workbook file. It must be closed after use.
type Reader struct {
	path string
	xlsx *excelize.File
	xls  *xls.Workbook
}

var (
	_ ports.WorkbookReader = (*Reader)(nil)
	_ ports.Closer         = (*Reader)(nil)
)

// Open opens path as .xlsx, or as .xls when the extension says so. A file
// whose content does not match its extension is retried with the other
// format.
func Open(path string) (*Reader, error) {
	first, second := openXLSX, openXLS
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		first, second = openXLS, openXLSX
	}

	r, err := first(path)
	if err == nil {
		return r, nil
	}
	if r, errAlt := second(path); errAlt == nil {
		return r, nil
	}
	return nil, fmt.Errorf("open %s: %w", path, err)
}

func openXLSX(path string) (*Reader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &Reader{path: path, xlsx: f}, nil
}

func openXLS(path string) (*Reader, error) {
	wb, err := xls.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &Reader{path: path, xls: &wb}, nil
}

// Path returns the file the reader was opened from.
func (r *Reader) Path() string { return r.path }

func (r *Reader) SheetNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.xlsx != nil {
		return r.xlsx.GetSheetList(), nil
	}
	var names []string
	for _, sh := range r.xls.GetSheets() {
		names = append(names, sh.GetName())
	}
	return names, nil
}

// ReadSheet returns the raw cell values of a sheet. Numbers are not run
// through the cell number format, so a cell displayed as "€ -1.234,50"
// comes back as "-1234.5".
func (r *Reader) ReadSheet(ctx context.Context, name string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.xlsx != nil {
		return r.readXLSX(name)
	}
	return r.readXLS(name)
}

func (r *Reader) readXLSX(name string) ([][]string, error) {
	idx, err := r.xlsx.GetSheetIndex(name)
	if err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", ports.ErrSheetNotFound, name)
	}
	rows, err := r.xlsx.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	return rows, nil
}

func (r *Reader) readXLS(name string) ([][]string, error) {
	for _, sh := range r.xls.GetSheets() {
		if sh.GetName() != name {
			continue
		}
		var out [][]string
		for _, row := range sh.GetRows() {
			var cells []string
			for _, c := range row.GetCols() {
				cells = append(cells, c.GetString())
			}
			out = append(out, cells)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ports.ErrSheetNotFound, name)
}

// Close releases the underlying file. Legacy workbooks are read fully on
// open and hold nothing.
func (r *Reader) Close() error {
	if r.xlsx == nil {
		return nil
	}
	return r.xlsx.Close()
}
