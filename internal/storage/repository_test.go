package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flussi/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "flussi.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testReport(id string, at time.Time) core.Report {
	jun := core.PeriodKey{Year: 2024, Month: 6}
	jul := core.PeriodKey{Year: 2024, Month: 7}
	return core.Report{
		RunID:       id,
		GeneratedAt: at,
		Source:      "Flussi di cassa.xlsx",
		Summaries: []core.PeriodSummary{
			{Period: jun, TotalIncome: dec("3000"), TotalExpense: dec("-1200.50"), Balance: dec("1799.50"), FromGrandTotal: true},
			{Period: jul, TotalIncome: dec("3000"), TotalExpense: dec("-800"), Balance: dec("2200")},
		},
		Entries: []core.Entry{
			{Period: jun, Category: "Casa", Subcategory: "Affitto", Amount: dec("-800"), Kind: core.Expense},
			{Period: jun, Category: "Casa", Subcategory: "Bollette", Amount: dec("-400.50"), Kind: core.Expense},
			{Period: jun, Category: "Lavoro", Amount: dec("3000"), Kind: core.Income},
			{Period: jul, Category: "Casa", Subcategory: "Affitto", Amount: dec("-800"), Kind: core.Expense},
			{Period: jul, Category: "Lavoro", Amount: dec("3000"), Kind: core.Income},
		},
		Advisories: []core.Advisory{
			{Sheet: "Pivot 06-2024", Code: core.AdvisoryNoFilterMarker, Message: "no marker"},
		},
		Skipped: []string{"Pivot Archive"},
	}
}

func TestSQLiteRepository_SaveAndRead(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	at := time.Date(2024, 8, 1, 9, 30, 0, 0, time.UTC)

	if err := repo.SaveReport(ctx, testReport("run-1", at)); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	summaries, err := repo.ListSummaries(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListSummaries() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("ListSummaries() returned %d summaries, want 2", len(summaries))
	}
	first := summaries[0]
	if first.Period != (core.PeriodKey{Year: 2024, Month: 6}) {
		t.Errorf("first period = %v, want 2024-06", first.Period)
	}
	if !first.TotalExpense.Equal(dec("-1200.5")) || !first.Balance.Equal(dec("1799.5")) || !first.FromGrandTotal {
		t.Errorf("first summary = %+v", first)
	}

	entries, err := repo.ListEntries(ctx, "run-1", core.PeriodKey{Year: 2024, Month: 6})
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("ListEntries() returned %d entries, want 3", len(entries))
	}
	if entries[1].Subcategory != "Bollette" || !entries[1].Amount.Equal(dec("-400.5")) || entries[1].Kind != core.Expense {
		t.Errorf("entries[1] = %+v", entries[1])
	}
	if entries[2].HasSubcategory() || entries[2].Kind != core.Income {
		t.Errorf("entries[2] = %+v", entries[2])
	}

	advisories, err := repo.ListAdvisories(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListAdvisories() error = %v", err)
	}
	if len(advisories) != 1 || advisories[0].Code != core.AdvisoryNoFilterMarker {
		t.Errorf("advisories = %+v", advisories)
	}

	runs, err := repo.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Runs() returned %d runs, want 1", len(runs))
	}
	if runs[0].FirstPeriod != "2024-06" || runs[0].LastPeriod != "2024-07" || runs[0].Skipped != 1 {
		t.Errorf("run = %+v", runs[0])
	}
	if !runs[0].GeneratedAt.Equal(at) {
		t.Errorf("GeneratedAt = %v, want %v", runs[0].GeneratedAt, at)
	}
}

func TestSQLiteRepository_LatestRunID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.LatestRunID(ctx); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("LatestRunID() on empty db error = %v, want ErrNoRuns", err)
	}

	older := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	for _, rep := range []core.Report{testReport("new", newer), testReport("old", older)} {
		if err := repo.Write(ctx, rep); err != nil {
			t.Fatalf("Write(%s) error = %v", rep.RunID, err)
		}
	}

	id, err := repo.LatestRunID(ctx)
	if err != nil {
		t.Fatalf("LatestRunID() error = %v", err)
	}
	if id != "new" {
		t.Errorf("LatestRunID() = %q, want %q", id, "new")
	}
}

func TestSQLiteRepository_SaveReportErrors(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveReport(ctx, core.Report{}); err == nil {
		t.Error("SaveReport() without run id should fail")
	}

	rep := testReport("dup", time.Now())
	if err := repo.SaveReport(ctx, rep); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if err := repo.SaveReport(ctx, rep); err == nil {
		t.Error("saving the same run twice should fail")
	}

	summaries, err := repo.ListSummaries(ctx, "dup")
	if err != nil {
		t.Fatalf("ListSummaries() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Errorf("failed save must not leave partial rows, got %d summaries", len(summaries))
	}
}

func TestSQLiteRepository_EmptyReport(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveReport(ctx, core.Report{RunID: "empty", GeneratedAt: time.Now()}); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	runs, err := repo.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 1 || runs[0].FirstPeriod != "" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	for i := 0; i < 2; i++ {
		v, err := RunMigrations(path)
		if err != nil {
			t.Fatalf("RunMigrations() run %d error = %v", i, err)
		}
		if v != 1 {
			t.Errorf("RunMigrations() version = %d, want 1", v)
		}
	}
}
