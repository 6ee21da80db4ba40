package memory

import (
	"context"
	"fmt"
	"sync"

	ports "flussi/internal/sheets"
)

// Workbook is an in-memory WorkbookReader. It keeps sheets in insertion order.
type Workbook struct {
	mu     sync.Mutex
	names  []string
	sheets map[string][][]string
}

var _ ports.WorkbookReader = (*Workbook)(nil)

func New() *Workbook {
	return &Workbook{sheets: make(map[string][][]string)}
}

// Add stores a sheet, replacing any sheet with the same name.
func (w *Workbook) Add(name string, rows [][]string) *Workbook {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.sheets[name]; !ok {
		w.names = append(w.names, name)
	}
	w.sheets[name] = cloneRows(rows)
	return w
}

// SheetNames returns sheet names in insertion order.
func (w *Workbook) SheetNames(_ context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.names...), nil
}

// ReadSheet returns a copy of the named sheet.
func (w *Workbook) ReadSheet(_ context.Context, name string) ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rows, ok := w.sheets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrSheetNotFound, name)
	}
	return cloneRows(rows), nil
}

func cloneRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}
