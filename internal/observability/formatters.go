// Package observability provides formatted, human-readable CLI output.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/profile-engine/internal/reconcile"
	"github.com/jonathan/profile-engine/internal/scoring"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads a line to the box's inner width in runes.
func pad(line string) string {
	inner := boxWidth - 4
	n := utf8.RuneCountInString(line)
	if n > inner {
		runes := []rune(line)
		return string(runes[:inner-3]) + "..."
	}
	return line + strings.Repeat(" ", inner-n)
}

// PrintReconcileReport outputs the result of an artifact sweep.
func (p *Printer) PrintReconcileReport(report *reconcile.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Listed:      %d\n", report.Listed))
	sb.WriteString(fmt.Sprintf("Referenced:  %d\n", report.Referenced))
	sb.WriteString(fmt.Sprintf("Within grace: %d\n", report.Young))
	if report.DryRun {
		sb.WriteString(fmt.Sprintf("Would delete: %d\n", len(report.Orphans)))
	} else {
		sb.WriteString(fmt.Sprintf("Deleted:     %d\n", report.Deleted))
		sb.WriteString(fmt.Sprintf("Failed:      %d\n", report.Failed))
	}
	sb.WriteString(fmt.Sprintf("Missing:     %d\n", len(report.Missing)))

	writeList(&sb, "Orphans", report.Orphans)
	writeList(&sb, "Missing artifacts", report.Missing)

	title := "ARTIFACT RECONCILIATION"
	if report.DryRun {
		title += " (DRY RUN)"
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n%s:\n", label))
	count := min(len(items), maxItemsToShow)
	for _, item := range items[:count] {
		sb.WriteString(fmt.Sprintf("  • %s\n", item))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}

// PrintScoreBreakdown outputs the per-category points behind a completion score.
func (p *Printer) PrintScoreBreakdown(subject string, score int, b scoring.Breakdown) {
	rows := []struct {
		name   string
		points float64
	}{
		{"Basic fields", b.Basic},
		{"Summaries", b.LongText},
		{"Links", b.Links},
		{"Profile image", b.Image},
		{"Experience", b.Experience},
		{"Education", b.Education},
		{"Skills", b.Skills},
		{"Resume", b.Resume},
	}

	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%-14s %6.2f\n", r.name, r.points))
	}
	sb.WriteString(fmt.Sprintf("%-14s %6.2f\n", "Total", b.Sum()))
	sb.WriteString(fmt.Sprintf("%-14s %3d", "Score", score))

	p.printBox("COMPLETION SCORE "+subject, sb.String())
}
