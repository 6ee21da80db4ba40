package main

import (
	"fmt"
	"io"
	"strings"

	"flussi/internal/aggregate"
	"flussi/internal/core"
	"flussi/internal/services"
)

const rule = "======================================================================"

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule, title, rule)
}

func printGateFailures(w io.Writer, gerr *services.GateError) {
	section(w, "FILTER CHECK FAILED")
	for _, f := range gerr.Failures {
		fmt.Fprintf(w, "  %s: %s\n", f.Sheet, f.Message)
	}
	fmt.Fprintln(w, "\nSet the exclusion filter to the blank value on every pivot and export again.")
}

func printAnalysis(w io.Writer, rep core.Report, a aggregate.Analysis) {
	section(w, "SUMMARY")
	if a.Months == 0 {
		fmt.Fprintln(w, "No data to analyse.")
		return
	}
	first, last, _ := rep.Range()
	fmt.Fprintf(w, "Period: %s - %s\n", first.Label(), last.Label())
	fmt.Fprintf(w, "Months: %d\n\n", a.Months)

	fmt.Fprintf(w, "  Total income:   %14s\n", core.FormatEuros(a.TotalIncome))
	fmt.Fprintf(w, "  Total expense:  %14s\n", core.FormatEuros(a.TotalExpense))
	fmt.Fprintf(w, "  Balance:        %14s\n\n", core.FormatEuros(a.Balance))

	fmt.Fprintf(w, "  Avg income:     %14s\n", core.FormatEuros(a.AvgIncome))
	fmt.Fprintf(w, "  Avg expense:    %14s\n", core.FormatEuros(a.AvgExpense))
	fmt.Fprintf(w, "  Avg balance:    %14s\n\n", core.FormatEuros(a.AvgBalance))

	fmt.Fprintf(w, "  Best month:  %s (%s)\n", a.Best.Period.Label(), core.FormatEuros(a.Best.Balance))
	fmt.Fprintf(w, "  Worst month: %s (%s)\n", a.Worst.Period.Label(), core.FormatEuros(a.Worst.Balance))

	printRanking(w, "Top expense categories", a.TopExpenses)
	printRanking(w, "Top income categories", a.TopIncome)
}

func printRanking(w io.Writer, title string, items []core.CategoryAmount) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for i, it := range items {
		fmt.Fprintf(w, "  %d. %-30s %14s\n", i+1, it.Name, core.FormatEuros(it.Amount))
	}
}

func printSeries(w io.Writer, series []aggregate.Series) {
	for _, s := range series {
		title := strings.ToUpper(s.Category)
		if s.Requested != s.Category {
			title += fmt.Sprintf(" (requested %q)", s.Requested)
		}
		section(w, title)
		for i, p := range s.Periods {
			fmt.Fprintf(w, "  %s  %14s\n", p.Label(), core.FormatEuros(s.MonthTotal(i)))
			for _, sub := range s.Subcategories {
				if v := s.Values[sub][i]; !v.IsZero() {
					fmt.Fprintf(w, "      %-26s %14s\n", sub, core.FormatEuros(v))
				}
			}
		}
		fmt.Fprintf(w, "\n  Total:        %14s\n", core.FormatEuros(s.Total))
		fmt.Fprintf(w, "  Monthly mean: %14s\n", core.FormatEuros(s.MonthlyMean))
		fmt.Fprintf(w, "  Highest:      %14s (%s)\n", core.FormatEuros(s.MaxAmount), s.MaxPeriod.Label())
	}
}

func printAdvisories(w io.Writer, rep core.Report) {
	if len(rep.Advisories) == 0 && len(rep.Skipped) == 0 {
		return
	}
	section(w, "WARNINGS")
	for _, a := range rep.Advisories {
		if a.Sheet != "" {
			fmt.Fprintf(w, "  [%s] %s: %s\n", a.Code, a.Sheet, a.Message)
		} else {
			fmt.Fprintf(w, "  [%s] %s\n", a.Code, a.Message)
		}
	}
	if len(rep.Skipped) > 0 {
		fmt.Fprintf(w, "  Skipped sheets: %s\n", strings.Join(rep.Skipped, ", "))
	}
}
