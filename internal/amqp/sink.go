package amqp

import (
	"context"
	"fmt"

	"flussi/internal/core"
)

// Sink publishes every period summary of a report.
type Sink struct {
	client *Client
}

func NewSink(client *Client) *Sink {
	return &Sink{client: client}
}

func (s *Sink) Name() string { return "amqp" }

func (s *Sink) Write(ctx context.Context, rep core.Report) error {
	for _, sum := range rep.Summaries {
		if err := s.client.PublishSummary(ctx, NewSummaryMessage(rep, sum)); err != nil {
			return fmt.Errorf("amqp sink: %w", err)
		}
	}
	return nil
}

func (s *Sink) Close() error {
	return s.client.Close()
}
