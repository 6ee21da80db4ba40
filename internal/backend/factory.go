package backend

import (
	"context"
	"errors"
	"fmt"

	"flussi/internal/amqp"
	"flussi/internal/config"
	"flussi/internal/export"
	"flussi/internal/log"
	"flussi/internal/services"
	"flussi/internal/sheets/excel"
	gsheet "flussi/internal/sheets/google"
	"flussi/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentApp),
	}
}

// OpenSource implements Factory.OpenSource
func (f *DefaultFactory) OpenSource(ctx context.Context, cfg Config) (*SourceResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Source {
	case GoogleSource:
		return f.openGoogle(ctx, cfg)
	case ExcelSource:
		return f.openExcel(cfg)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Source)
	}
}

func (f *DefaultFactory) openExcel(cfg Config) (*SourceResult, error) {
	r, err := excel.Open(cfg.ExcelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	f.logger.Info("Opened Excel workbook", log.NewFields().
		With(log.FieldSource, ExcelSource.String()).With(log.FieldPath, r.Path()).ToSlice()...)

	return &SourceResult{
		Reader:  r,
		Source:  r.Path(),
		Cleanup: r.Close,
	}, nil
}

func (f *DefaultFactory) openGoogle(ctx context.Context, cfg Config) (*SourceResult, error) {
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		CacheTTL:        cfg.GoogleCacheTTL,
		Logger:          f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets source", log.NewFields().
		With(log.FieldSource, GoogleSource.String()).With("spreadsheet_id", cfg.GoogleSpreadsheetID).ToSlice()...)

	return &SourceResult{
		Reader:  client,
		Source:  "google:" + cfg.GoogleSpreadsheetID,
		Cleanup: nil, // No cleanup needed for sheets source
	}, nil
}

// CreateSinks implements Factory.CreateSinks. File sinks come first, then
// SQLite and AMQP when configured.
func (f *DefaultFactory) CreateSinks(cfg Config) (*SinksResult, error) {
	res := &SinksResult{}
	var closers []CleanupFunc
	res.Cleanup = func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	for _, format := range cfg.OutputFormats {
		switch format {
		case config.FormatCSV:
			enc, err := export.ParseEncoding(cfg.CSVEncoding)
			if err != nil {
				return nil, err
			}
			res.Sinks = append(res.Sinks, export.NewCSVSink(cfg.OutputDir, enc))
		case config.FormatJSON:
			res.Sinks = append(res.Sinks, export.NewJSONSink(cfg.OutputDir))
		case config.FormatXLSX:
			res.Sinks = append(res.Sinks, export.NewXLSXSink(cfg.OutputDir))
		default:
			return nil, fmt.Errorf("unsupported output format: %s", format)
		}
	}

	if cfg.SQLiteDBPath != "" {
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, f.logger)
		if err != nil {
			res.Cleanup()
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		closers = append(closers, repo.Close)
		res.Sinks = append(res.Sinks, repo)
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, f.logger)
		if err != nil {
			res.Cleanup()
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		sink := amqp.NewSink(client)
		closers = append(closers, sink.Close)
		res.Sinks = append(res.Sinks, sink)
		f.logger.Info("Initialized AMQP sink", log.NewFields().
			With("exchange", cfg.AMQPExchange).With("routing_key", cfg.AMQPRoutingKey).ToSlice()...)
	}

	return res, nil
}

var _ services.Sink = (*storage.SQLiteRepository)(nil)
