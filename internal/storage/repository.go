package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"flussi/internal/core"
	"flussi/internal/log"

	_ "modernc.org/sqlite"
)

// ErrNoRuns is returned when the database holds no extraction run yet.
var ErrNoRuns = errors.New("no runs stored")

// RunInfo describes a stored extraction run.
type RunInfo struct {
	ID          string
	GeneratedAt time.Time
	Source      string
	FirstPeriod string
	LastPeriod  string
	Skipped     int
}

// SQLiteRepository persists extraction reports. Every run is stored in full;
// older runs are never rewritten.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Debug("database ready", log.NewFields().
		With(log.FieldPath, dbPath).WithOperation(log.OpMigrate).With("schema_version", version).ToSlice()...)

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Name identifies the repository as an output sink.
func (r *SQLiteRepository) Name() string { return "sqlite" }

// Write stores the report; it lets the repository act as an output sink.
func (r *SQLiteRepository) Write(ctx context.Context, rep core.Report) error {
	return r.SaveReport(ctx, rep)
}

// SaveReport stores a report with its summaries, entries and advisories in
// one transaction.
func (r *SQLiteRepository) SaveReport(ctx context.Context, rep core.Report) error {
	if rep.RunID == "" {
		return errors.New("report has no run id")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var first, last sql.NullString
	if f, l, ok := rep.Range(); ok {
		first = sql.NullString{String: f.String(), Valid: true}
		last = sql.NullString{String: l.String(), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, generated_at, source, first_period, last_period, skipped) VALUES (?, ?, ?, ?, ?, ?)`,
		rep.RunID, rep.GeneratedAt.UTC().Format(time.RFC3339Nano), rep.Source, first, last, len(rep.Skipped),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err := insertEach(ctx, tx,
		`INSERT INTO period_summaries (run_id, seq, period, year, month, total_income, total_expense, balance, from_grand_total)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rep.Summaries), func(i int) []any {
			s := rep.Summaries[i]
			return []any{rep.RunID, i, s.Period.String(), s.Period.Year, s.Period.Month,
				s.TotalIncome.String(), s.TotalExpense.String(), s.Balance.String(), s.FromGrandTotal}
		}); err != nil {
		return fmt.Errorf("insert summaries: %w", err)
	}

	if err := insertEach(ctx, tx,
		`INSERT INTO entries (run_id, seq, period, year, month, category, subcategory, amount, kind)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rep.Entries), func(i int) []any {
			e := rep.Entries[i]
			return []any{rep.RunID, i, e.Period.String(), e.Period.Year, e.Period.Month,
				e.Category, e.Subcategory, e.Amount.String(), string(e.Kind)}
		}); err != nil {
		return fmt.Errorf("insert entries: %w", err)
	}

	if err := insertEach(ctx, tx,
		`INSERT INTO advisories (run_id, seq, sheet, code, message) VALUES (?, ?, ?, ?, ?)`,
		len(rep.Advisories), func(i int) []any {
			a := rep.Advisories[i]
			return []any{rep.RunID, i, a.Sheet, string(a.Code), a.Message}
		}); err != nil {
		return fmt.Errorf("insert advisories: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}

	r.logger.InfoContext(ctx, "report saved to SQLite", log.NewFields().
		With(log.FieldRunID, rep.RunID).
		With("summaries", len(rep.Summaries)).
		With("entries", len(rep.Entries)).ToSlice()...)
	return nil
}

func insertEach(ctx context.Context, tx *sql.Tx, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// Runs lists stored runs, newest first.
func (r *SQLiteRepository) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, generated_at, source, first_period, last_period, skipped FROM runs ORDER BY generated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			info        RunInfo
			generated   string
			first, last sql.NullString
		)
		if err := rows.Scan(&info.ID, &generated, &info.Source, &first, &last, &info.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		info.GeneratedAt, err = time.Parse(time.RFC3339Nano, generated)
		if err != nil {
			return nil, fmt.Errorf("parse run time %q: %w", generated, err)
		}
		info.FirstPeriod, info.LastPeriod = first.String, last.String
		out = append(out, info)
	}
	return out, rows.Err()
}

// LatestRunID returns the id of the most recent run.
func (r *SQLiteRepository) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY generated_at DESC, id LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return id, nil
}

// ListSummaries returns the period summaries of a run in stored order.
func (r *SQLiteRepository) ListSummaries(ctx context.Context, runID string) ([]core.PeriodSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT year, month, total_income, total_expense, balance, from_grand_total
		 FROM period_summaries WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []core.PeriodSummary
	for rows.Next() {
		var (
			s                    core.PeriodSummary
			income, expense, bal string
		)
		if err := rows.Scan(&s.Period.Year, &s.Period.Month, &income, &expense, &bal, &s.FromGrandTotal); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if s.TotalIncome, err = decimal.NewFromString(income); err != nil {
			return nil, fmt.Errorf("parse total_income: %w", err)
		}
		if s.TotalExpense, err = decimal.NewFromString(expense); err != nil {
			return nil, fmt.Errorf("parse total_expense: %w", err)
		}
		if s.Balance, err = decimal.NewFromString(bal); err != nil {
			return nil, fmt.Errorf("parse balance: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListEntries returns the entries of one period of a run in stored order.
func (r *SQLiteRepository) ListEntries(ctx context.Context, runID string, period core.PeriodKey) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, subcategory, amount, kind FROM entries
		 WHERE run_id = ? AND period = ? ORDER BY seq`, runID, period.String())
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e := core.Entry{Period: period}
		var amount, kind string
		if err := rows.Scan(&e.Category, &e.Subcategory, &amount, &kind); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		e.Kind = core.Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListAdvisories returns the advisories recorded for a run.
func (r *SQLiteRepository) ListAdvisories(ctx context.Context, runID string) ([]core.Advisory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sheet, code, message FROM advisories WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list advisories: %w", err)
	}
	defer rows.Close()

	var out []core.Advisory
	for rows.Next() {
		var a core.Advisory
		var code string
		if err := rows.Scan(&a.Sheet, &code, &a.Message); err != nil {
			return nil, fmt.Errorf("scan advisory: %w", err)
		}
		a.Code = core.AdvisoryCode(code)
		out = append(out, a)
	}
	return out, rows.Err()
}
