package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"flussi/internal/aggregate"
	"flussi/internal/core"
	"flussi/internal/log"
	"flussi/internal/pivot"
	"flussi/internal/sheets"
)

// DefaultSheetPrefix selects the pivot sheets of the workbook.
const DefaultSheetPrefix = "pivot"

// ErrFilterGate is wrapped by GateError.
var ErrFilterGate = errors.New("exclusion filter check failed")

// GateFailure is one sheet rejected by the filter check.
type GateFailure struct {
	Sheet   string
	Message string
}

// GateError lists every candidate sheet whose exclusion filter is not set to
// the blank sentinel. No sheet is reconstructed when it is returned.
type GateError struct {
	Failures []GateFailure
}

func (e *GateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %d sheet(s):", ErrFilterGate, len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n- %s: %s", f.Sheet, f.Message)
	}
	return b.String()
}

func (e *GateError) Unwrap() error { return ErrFilterGate }

// ExtractionOptions configures an ExtractionService. Zero values fall back
// to defaults.
type ExtractionOptions struct {
	SheetPrefix   string
	Source        string
	Verifier      *pivot.FilterVerifier
	Reconstructor *pivot.Reconstructor
	Logger        *log.Logger

	now   func() time.Time
	newID func() string
}

// ExtractionService turns the pivot sheets of a workbook into a report.
type ExtractionService struct {
	reader        sheets.WorkbookReader
	prefix        string
	source        string
	verifier      *pivot.FilterVerifier
	reconstructor *pivot.Reconstructor
	logger        *log.Logger
	now           func() time.Time
	newID         func() string
}

func NewExtractionService(reader sheets.WorkbookReader, opts ExtractionOptions) *ExtractionService {
	s := &ExtractionService{
		reader:        reader,
		prefix:        strings.ToLower(strings.TrimSpace(opts.SheetPrefix)),
		source:        opts.Source,
		verifier:      opts.Verifier,
		reconstructor: opts.Reconstructor,
		logger:        opts.Logger,
		now:           opts.now,
		newID:         opts.newID,
	}
	if s.prefix == "" {
		s.prefix = DefaultSheetPrefix
	}
	if s.verifier == nil {
		s.verifier = pivot.NewFilterVerifier("", "")
	}
	if s.reconstructor == nil {
		s.reconstructor = pivot.NewReconstructor(pivot.DefaultOptions())
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentExtract)
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// Candidates returns the sheets whose name starts with the prefix
// (case-insensitive), in lexicographic order.
func (s *ExtractionService) Candidates(ctx context.Context) ([]string, error) {
	names, err := s.reader.SheetNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	var out []string
	for _, n := range names {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(n)), s.prefix) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}

type sheetGrid struct {
	name string
	rows [][]string
}

// Run reads every candidate sheet, checks all exclusion filters, and only
// then reconstructs and folds the sheets one at a time. A failing filter on
// any sheet returns a *GateError and no report.
func (s *ExtractionService) Run(ctx context.Context) (core.Report, error) {
	start := s.now()
	runID := s.newID()
	logger := s.logger.With(log.FieldRunID, runID)

	candidates, err := s.Candidates(ctx)
	if err != nil {
		return core.Report{}, err
	}
	logger.InfoContext(ctx, "extraction started", log.NewFields().
		With(log.FieldSource, s.source).WithCount(len(candidates)).ToSlice()...)

	grids := make([]sheetGrid, 0, len(candidates))
	for _, name := range candidates {
		rows, err := s.reader.ReadSheet(ctx, name)
		if err != nil {
			return core.Report{}, fmt.Errorf("read sheet %q: %w", name, err)
		}
		grids = append(grids, sheetGrid{name: name, rows: rows})
	}

	gateAdvisories, err := s.gate(ctx, logger, grids)
	if err != nil {
		return core.Report{}, err
	}

	agg := aggregate.NewAggregator()
	for _, g := range grids {
		if err := ctx.Err(); err != nil {
			return core.Report{}, err
		}
		res := s.reconstructor.Reconstruct(g.rows)
		summary, err := agg.Fold(g.name, res)
		switch {
		case errors.Is(err, aggregate.ErrNoPeriod):
			logger.WarnContext(ctx, "sheet skipped", log.NewFields().
				WithOperation(log.OpFold).With(log.FieldSheet, g.name).WithError(err).ToSlice()...)
			continue
		case err != nil:
			return core.Report{}, fmt.Errorf("fold sheet %q: %w", g.name, err)
		}
		logger.DebugContext(ctx, "sheet folded", log.NewFields().
			WithOperation(log.OpFold).
			WithSheet(g.name, summary.Period.Label()).
			WithCount(len(res.Lines)).
			With("balance", summary.Balance.StringFixed(2)).ToSlice()...)
	}

	rep := agg.Report()
	rep.RunID = runID
	rep.GeneratedAt = start
	rep.Source = s.source
	rep.Advisories = append(gateAdvisories, rep.Advisories...)

	for _, adv := range rep.Advisories {
		logger.LogAdvisory(ctx, adv)
	}
	logger.InfoContext(ctx, "extraction finished", log.NewFields().
		With("periods", len(rep.Summaries)).
		With("entries", len(rep.Entries)).
		With("skipped", len(rep.Skipped)).
		With("advisories", len(rep.Advisories)).
		With(log.FieldDuration, s.now().Sub(start).Milliseconds()).ToSlice()...)
	return rep, nil
}

func (s *ExtractionService) gate(ctx context.Context, logger *log.Logger, grids []sheetGrid) ([]core.Advisory, error) {
	var (
		failures   []GateFailure
		advisories []core.Advisory
	)
	for _, g := range grids {
		res := s.verifier.Verify(g.rows)
		switch res.Status {
		case pivot.FilterFail:
			failures = append(failures, GateFailure{Sheet: g.name, Message: res.Message})
		case pivot.FilterWarn:
			advisories = append(advisories, core.Advisory{
				Sheet:   g.name,
				Code:    core.AdvisoryNoFilterMarker,
				Message: res.Message,
			})
		}
		logger.DebugContext(ctx, "filter verified", log.NewFields().
			WithOperation(log.OpVerify).
			With(log.FieldSheet, g.name).
			With(log.FieldStatus, string(res.Status)).ToSlice()...)
	}
	if len(failures) > 0 {
		gerr := &GateError{Failures: failures}
		logger.LogError(ctx, "exclusion filter check failed", gerr, log.OpVerify,
			log.NewFields().WithCount(len(failures)))
		return nil, gerr
	}
	return advisories, nil
}
