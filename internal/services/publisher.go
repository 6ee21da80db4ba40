package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"flussi/internal/core"
	"flussi/internal/log"
)

// Sink receives a finished report.
type Sink interface {
	Name() string
	Write(ctx context.Context, rep core.Report) error
}

// Publisher hands a report to every sink concurrently. Sinks only read the
// report.
type Publisher struct {
	sinks  []Sink
	logger *log.Logger
}

func NewPublisher(logger *log.Logger, sinks ...Sink) *Publisher {
	if logger == nil {
		logger = log.Discard()
	}
	return &Publisher{sinks: sinks, logger: logger.WithComponent(log.ComponentExport)}
}

// Sinks returns the names of the configured sinks.
func (p *Publisher) Sinks() []string {
	names := make([]string, len(p.sinks))
	for i, s := range p.sinks {
		names[i] = s.Name()
	}
	return names
}

// Publish writes rep to all sinks and returns the first error. The context
// passed to the other sinks is canceled once one fails.
func (p *Publisher) Publish(ctx context.Context, rep core.Report) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, sink := range p.sinks {
		g.Go(func() error {
			start := time.Now()
			if err := sink.Write(gctx, rep); err != nil {
				p.logger.LogError(gctx, "sink failed", err, log.OpExport,
					log.NewFields().With(log.FieldSink, sink.Name()))
				return fmt.Errorf("%s sink: %w", sink.Name(), err)
			}
			p.logger.InfoContext(gctx, "report written", log.NewFields().
				WithOperation(log.OpExport).
				With(log.FieldSink, sink.Name()).
				With(log.FieldDuration, time.Since(start).Milliseconds()).ToSlice()...)
			return nil
		})
	}
	return g.Wait()
}
