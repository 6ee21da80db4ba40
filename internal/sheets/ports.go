package sheets

import (
	"context"
	"errors"
)

// ErrSheetNotFound is returned by ReadSheet for unknown sheet names.
var ErrSheetNotFound = errors.New("sheet not found")

// Ports for inbound workbook adapters.
type (
	// WorkbookReader exposes a spreadsheet as named grids of cell text.
	// Numeric cells are rendered without thousands separators or currency
	// symbols so that they parse back to the stored value.
	WorkbookReader interface {
		// SheetNames lists the sheets in workbook order.
		SheetNames(ctx context.Context) ([]string, error)
		// ReadSheet returns the rows of one sheet. Rows may be ragged.
		ReadSheet(ctx context.Context, name string) ([][]string, error)
	}

	// Closer is implemented by readers holding an open file.
	Closer interface {
		Close() error
	}
)
