package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"flussi/internal/core"
)

type recordingSink struct {
	name string
	err  error

	mu   sync.Mutex
	got  []core.Report
	seen bool
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, rep core.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = true
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, rep)
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	p := NewPublisher(nil, a, b)

	if got := strings.Join(p.Sinks(), ","); got != "a,b" {
		t.Errorf("Sinks() = %q", got)
	}

	rep := core.Report{RunID: "run-1"}
	if err := p.Publish(context.Background(), rep); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	for _, s := range []*recordingSink{a, b} {
		if len(s.got) != 1 || s.got[0].RunID != "run-1" {
			t.Errorf("sink %s received %+v", s.name, s.got)
		}
	}
}

func TestPublisher_SinkError(t *testing.T) {
	boom := errors.New("boom")
	ok := &recordingSink{name: "ok"}
	bad := &recordingSink{name: "bad", err: boom}

	err := NewPublisher(nil, ok, bad).Publish(context.Background(), core.Report{})
	if !errors.Is(err, boom) {
		t.Fatalf("Publish() error = %v, want boom", err)
	}
	if !strings.Contains(err.Error(), "bad sink") {
		t.Errorf("error %q should name the sink", err)
	}
	if !ok.seen {
		t.Error("healthy sink should still have been called")
	}
}

func TestPublisher_NoSinks(t *testing.T) {
	if err := NewPublisher(nil).Publish(context.Background(), core.Report{}); err != nil {
		t.Fatalf("Publish() with no sinks error = %v", err)
	}
}
