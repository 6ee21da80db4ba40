// Package cli provides the initialization steps shared by the command line
// entrypoints.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"flussi/internal/config"
	"flussi/internal/log"
)

// SetupLogger builds the application logger from the configured level and
// format and installs it as the slog default.
func SetupLogger(level, format string, out io.Writer) (*log.Logger, error) {
	lc := log.DefaultConfig()
	if out != nil {
		lc.Output = out
	}
	if format != "" {
		lc.Format = format
	}
	var err error
	if level != "" {
		lc.Level, err = log.ParseLevel(level)
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger, err
}

// LoadEnvFile loads a .env file for local use. A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// LoadAndValidateConfig loads the configuration, applies the command line
// overrides and validates the result.
func LoadAndValidateConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SignalContext returns a context canceled on SIGINT or SIGTERM, or when
// the returned cancel function is called.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			if logger != nil {
				logger.Info("shutdown signal received", log.NewFields().
					WithOperation(log.OpShutdown).With("signal", sig.String()).ToSlice()...)
			}
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
