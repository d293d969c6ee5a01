package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"showsweep/internal/actions"
	"showsweep/internal/store"
	"showsweep/internal/sweep"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", message)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

// renderReport writes the human summary of a run.
func renderReport(out io.Writer, report sweep.Report, colorize bool) {
	title := "Sweep summary"
	if report.DryRun {
		title += " (dry run)"
	}
	lines := renderSectionHeader(title, colorize)
	lines = append(lines,
		renderStatusLine("Run", statusInfo, report.RunID, colorize),
		renderStatusLine("Duration", statusInfo, report.Finished.Sub(report.Started).Round(time.Millisecond).String(), colorize),
		renderStatusLine("Scanned", statusInfo, strconv.Itoa(report.Scanned)+" series", colorize),
	)
	if report.InventoryError != "" {
		lines = append(lines, renderStatusLine("Inventory", statusError, report.InventoryError, colorize))
	}
	for _, guard := range sweep.Guards {
		if n := report.RejectedByGuard[guard]; n > 0 {
			lines = append(lines, renderStatusLine("Rejected "+guard, statusInfo, strconv.Itoa(n), colorize))
		}
	}
	if n := report.Rejected[sweep.RejectedUnverified]; n > 0 {
		lines = append(lines, renderStatusLine("Unverified", statusWarn, fmt.Sprintf("%d kept because a source could not answer", n), colorize))
	}
	if report.Errors > 0 {
		lines = append(lines, renderStatusLine("Errors", statusWarn, strconv.Itoa(report.Errors), colorize))
	}
	eligibleKind := statusInfo
	if len(report.Eligible) > 0 {
		eligibleKind = statusOK
	}
	lines = append(lines, renderStatusLine("Eligible", eligibleKind, strconv.Itoa(len(report.Eligible)), colorize))
	if report.ReclaimableBytes > 0 {
		lines = append(lines, renderStatusLine("Reclaimable", statusInfo, humanize.IBytes(uint64(report.ReclaimableBytes)), colorize))
	}
	fmt.Fprintln(out, strings.Join(lines, "\n"))

	if len(report.Eligible) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderEligible(report.Eligible))
	}
	if len(report.Acted) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderActions(report.Acted))
	}
}

func renderEligible(list []sweep.Decision) string {
	rows := make([][]string, 0, len(list))
	for i, d := range list {
		size := "-"
		if d.Item.SizeBytes > 0 {
			size = humanize.IBytes(uint64(d.Item.SizeBytes))
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			d.Item.Title,
			yearText(d.Item.Year),
			orDash(d.CrossRefID),
			size,
		})
	}
	return renderTable(
		"Eligible series",
		[]string{"#", "Title", "Year", "TVDB", "Size"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
	)
}

func renderActions(results []actions.Result) string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		outcome := string(res.Outcome)
		detail := res.Record.Detail
		if res.Refused {
			outcome = "refused"
			detail = "already acted on this run"
		}
		rows = append(rows, []string{res.Item.DisplayTitle(), string(res.Disposition), outcome, orDash(detail)})
	}
	return renderTable(
		"Actions",
		[]string{"Series", "Action", "Outcome", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

// failedActions counts results that did not fully succeed.
func failedActions(results []actions.Result) int {
	n := 0
	for _, res := range results {
		if res.Outcome == store.OutcomeFailed || res.Outcome == store.OutcomePartial {
			n++
		}
	}
	return n
}

func yearText(year int) string {
	if year <= 0 {
		return "-"
	}
	return strconv.Itoa(year)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
