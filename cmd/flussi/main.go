package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"flussi/internal/aggregate"
	"flussi/internal/backend"
	"flussi/internal/cli"
	"flussi/internal/config"
	"flussi/internal/log"
	"flussi/internal/pivot"
	"flussi/internal/services"
	"flussi/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "flussi:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("flussi", flag.ContinueOnError)
	var (
		excelPath  = fs.String("excel", "", "workbook to read (overrides EXCEL_PATH)")
		outDir     = fs.String("out", "", "output directory (overrides OUTPUT_DIR)")
		selections = fs.String("selections", "", "category selection CSV (overrides SELECTIONS_PATH)")
		envFile    = fs.String("env", ".env", "env file loaded before the configuration")
		dryRun     = fs.Bool("dry-run", false, "extract and print the analysis without writing outputs")
		listRuns   = fs.Bool("runs", false, "list the runs stored in the SQLite database and exit")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := cli.LoadEnvFile(*envFile); err != nil {
		return err
	}
	if *listRuns {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, err := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
		if err != nil {
			return err
		}
		return printRuns(context.Background(), cfg, logger, stdout)
	}

	cfg, err := cli.LoadAndValidateConfig(func(c *config.Config) {
		if *excelPath != "" {
			c.Source, c.ExcelPath = config.SourceExcel, *excelPath
		}
		if *outDir != "" {
			c.OutputDir = *outDir
		}
		if *selections != "" {
			c.SelectionsPath = *selections
		}
	})
	if err != nil {
		return err
	}

	logger, err := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(logger)

	src, err := factory.OpenSource(ctx, bcfg)
	if err != nil {
		return err
	}
	if src.Cleanup != nil {
		defer src.Cleanup()
	}

	svc := services.NewExtractionService(src.Reader, services.ExtractionOptions{
		SheetPrefix:   cfg.SheetPrefix,
		Source:        src.Source,
		Verifier:      pivot.NewFilterVerifier(cfg.FilterMarker, cfg.BlankSentinel),
		Reconstructor: pivot.NewReconstructor(pivotOptions(cfg)),
		Logger:        logger,
	})
	rep, err := svc.Run(ctx)
	if err != nil {
		var gerr *services.GateError
		if errors.As(err, &gerr) {
			printGateFailures(stdout, gerr)
		}
		return err
	}

	printAnalysis(stdout, rep, aggregate.Analyze(rep, cfg.TopN))

	if cfg.SelectionsPath != "" {
		sels, err := aggregate.LoadSelections(cfg.SelectionsPath)
		if err != nil {
			return err
		}
		series, advisories := aggregate.BuildSeries(rep, sels)
		for _, adv := range advisories {
			logger.LogAdvisory(ctx, adv)
		}
		rep.Advisories = append(rep.Advisories, advisories...)
		printSeries(stdout, series)
	}
	printAdvisories(stdout, rep)

	if *dryRun {
		return nil
	}

	sinks, err := factory.CreateSinks(bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sinks.Cleanup(); err != nil {
			logger.Warn("close sinks", log.NewFields().WithError(err).ToSlice()...)
		}
	}()

	pub := services.NewPublisher(logger, sinks.Sinks...)
	if err := pub.Publish(ctx, rep); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nOutput written to %s (%v)\n", cfg.OutputDir, pub.Sinks())
	return nil
}

func pivotOptions(cfg *config.Config) pivot.Options {
	opts := pivot.DefaultOptions()
	opts.BlankSentinel = cfg.BlankSentinel
	return opts
}

func printRuns(ctx context.Context, cfg *config.Config, logger *log.Logger, w io.Writer) error {
	if cfg.SQLiteDBPath == "" {
		return errors.New("SQLITE_DB_PATH is not set")
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	runs, err := repo.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs stored.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %s..%s  %s\n",
			r.ID, r.GeneratedAt.Local().Format(time.DateTime), r.FirstPeriod, r.LastPeriod, r.Source)
	}
	return nil
}
