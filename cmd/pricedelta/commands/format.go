package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/wonny/pricedelta/internal/batch"
	"github.com/wonny/pricedelta/internal/pricing"
	"github.com/wonny/pricedelta/internal/scheduler"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const lineWidth = 59

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("─", lineWidth))
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("═", lineWidth))
}

// PrintHeader prints a titled block header
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  %s\n", title)
	PrintSeparator(w)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "❌ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

var changeColumns = []string{"SYMBOL", "PRICE", "TODAY", "1D", "1W", "1M", "YTD"}
var changeWidths = []int{8, 12, 8, 8, 8, 8, 8}

// formatUSD renders a price in dollars, e.g. $1,234.50
func formatUSD(price float64) string {
	cents := decimal.NewFromFloat(price).Round(2).Shift(2).IntPart()
	return money.New(cents, "USD").Display()
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

func changeRow(r pricing.LookbackResult) []string {
	return []string{
		r.Symbol,
		formatUSD(r.CurrentPrice),
		formatPercent(r.Changes.Today),
		formatPercent(r.Changes.OneDay),
		formatPercent(r.Changes.OneWeek),
		formatPercent(r.Changes.OneMonth),
		formatPercent(r.Changes.YearToDate),
	}
}

// PrintBatchRun prints per-symbol results and failures of one run
func PrintBatchRun(w io.Writer, run *batch.BatchRun) {
	PrintTableHeader(w, changeColumns, changeWidths)
	for _, symbol := range run.Succeeded() {
		PrintTableRow(w, changeRow(run.Results[symbol]), changeWidths)
	}

	failed := run.Failed()
	if len(failed) > 0 {
		fmt.Fprintln(w)
		reasons := run.FailureReasons()
		sort.Strings(failed)
		for _, symbol := range failed {
			PrintError(w, fmt.Sprintf("%s: %s", symbol, reasons[symbol]))
		}
	}

	fmt.Fprintln(w)
	if run.ID != "" {
		PrintKeyValue(w, "Run ID", run.ID, 9)
	}
	PrintKeyValue(w, "Succeeded", fmt.Sprintf("%d", len(run.Results)), 9)
	PrintKeyValue(w, "Failed", fmt.Sprintf("%d", len(run.Failures)), 9)
	PrintKeyValue(w, "Committed", fmt.Sprintf("%t", run.Committed), 9)
	PrintKeyValue(w, "Duration", run.Duration().String(), 9)
}

// PrintLookback prints one symbol's references and changes
func PrintLookback(w io.Writer, name string, r pricing.LookbackResult) {
	PrintHeader(w, fmt.Sprintf("%s (%s) as of %s", r.Symbol, name, r.AsOf.Format(pricing.DateLayout)))

	PrintKeyValue(w, "Close", formatUSD(r.CurrentPrice), 12)
	PrintKeyValue(w, "Open", formatUSD(r.TodayOpenPrice), 12)
	printReference(w, "1 day ago", r.References.OneDayAgo, r.ReferenceDates.OneDayAgo.Format(pricing.DateLayout), r.ReferenceDates.OneDayAgo.IsZero())
	printReference(w, "1 week ago", r.References.OneWeekAgo, r.ReferenceDates.OneWeekAgo.Format(pricing.DateLayout), r.ReferenceDates.OneWeekAgo.IsZero())
	printReference(w, "1 month ago", r.References.OneMonthAgo, r.ReferenceDates.OneMonthAgo.Format(pricing.DateLayout), r.ReferenceDates.OneMonthAgo.IsZero())
	printReference(w, "Year start", r.References.YearStart, r.ReferenceDates.YearStart.Format(pricing.DateLayout), r.ReferenceDates.YearStart.IsZero())

	PrintSeparator(w)
	PrintTableHeader(w, changeColumns, changeWidths)
	PrintTableRow(w, changeRow(r), changeWidths)
}

func printReference(w io.Writer, label string, price float64, date string, fallback bool) {
	if fallback {
		date = "current price"
	}
	PrintKeyValue(w, label, fmt.Sprintf("%.4f (%s)", price, date), 12)
}

func printRunSummary(w io.Writer, s scheduler.RunSummary) {
	if s.RunID != "" {
		PrintKeyValue(w, "Run ID", s.RunID, 9)
	}
	PrintKeyValue(w, "Succeeded", fmt.Sprintf("%d", s.Succeeded), 9)
	PrintKeyValue(w, "Failed", fmt.Sprintf("%d", s.Failed), 9)
	if len(s.FailedSymbols) > 0 {
		PrintKeyValue(w, "Symbols", strings.Join(s.FailedSymbols, ", "), 9)
	}
	PrintKeyValue(w, "Committed", fmt.Sprintf("%t", s.Committed), 9)
}
