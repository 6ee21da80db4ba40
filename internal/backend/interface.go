// Package backend wires the configured workbook source and output sinks.
package backend

import (
	"context"
	"time"

	"flussi/internal/services"
	"flussi/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// SourceResult contains the opened workbook and its cleanup function
type SourceResult struct {
	Reader sheets.WorkbookReader
	// Source describes where the workbook came from, recorded in the report.
	Source  string
	Cleanup CleanupFunc
}

// SinksResult contains the output sinks and a cleanup function closing them
type SinksResult struct {
	Sinks   []services.Sink
	Cleanup CleanupFunc
}

// Factory creates sources and sinks based on configuration
type Factory interface {
	OpenSource(ctx context.Context, config Config) (*SourceResult, error)
	CreateSinks(config Config) (*SinksResult, error)
}

// Config holds what the factory needs from the application configuration
type Config struct {
	Source SourceType

	// Excel specific
	ExcelPath string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleCacheTTL           time.Duration

	// File sinks
	OutputDir     string
	OutputFormats []string
	CSVEncoding   string

	// Optional sinks
	SQLiteDBPath   string
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

// SourceType represents where the pivot workbook is read from
type SourceType string

const (
	ExcelSource  SourceType = "excel"
	GoogleSource SourceType = "google"
)

// String implements fmt.Stringer
func (st SourceType) String() string {
	return string(st)
}

// IsValid returns true if the source type is valid
func (st SourceType) IsValid() bool {
	switch st {
	case ExcelSource, GoogleSource:
		return true
	default:
		return false
	}
}
