package display

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"pg-selective-restore/internal/archive"
	"pg-selective-restore/internal/toc"
)

// dropReasonLabels maps filter verdicts to operator-facing descriptions
var dropReasonLabels = map[toc.DropReason]string{
	toc.DropReasonACL:               "ACL for excluded schema",
	toc.DropReasonSchema:            "schema excluded",
	toc.DropReasonTriggerDependency: "trigger depends on excluded schema",
	toc.DropReasonNoDataSchema:      "data skipped (definitions only)",
	toc.DropReasonExcludedTable:     "table excluded",
	toc.DropReasonExcludedPattern:   "table matched exclude pattern",
}

// Printer renders operator-facing output with optional colors
type Printer struct {
	colors ColorSystem
	writer io.Writer
	quiet  bool
}

// NewPrinter creates a printer writing to the given writer
func NewPrinter(colors ColorSystem, writer io.Writer) *Printer {
	if writer == nil {
		writer = os.Stdout
	}
	return &Printer{colors: colors, writer: writer}
}

// SetQuiet suppresses everything but errors
func (p *Printer) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// Success prints a success message
func (p *Printer) Success(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	theme := p.colors.GetTheme()
	fmt.Fprintln(p.writer, p.colors.Sprintf(theme.Success, "✓ "+format, args...))
}

// Error prints an error message
func (p *Printer) Error(format string, args ...interface{}) {
	theme := p.colors.GetTheme()
	fmt.Fprintln(p.writer, p.colors.Sprintf(theme.Error, "✗ "+format, args...))
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	theme := p.colors.GetTheme()
	fmt.Fprintln(p.writer, p.colors.Sprintf(theme.Warning, "! "+format, args...))
}

// Info prints an informational message
func (p *Printer) Info(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	theme := p.colors.GetTheme()
	fmt.Fprintln(p.writer, p.colors.Sprintf(theme.Info, format, args...))
}

// Header prints a section header
func (p *Printer) Header(title string) {
	if p.quiet {
		return
	}
	theme := p.colors.GetTheme()
	fmt.Fprintln(p.writer, p.colors.Sprintf(theme.Primary, "%s", title))
	fmt.Fprintln(p.writer, p.colors.Sprintf(theme.Muted, "%s", strings.Repeat("─", len(title))))
}

// FilterSummary renders the outcome of a catalog rewrite
func (p *Printer) FilterSummary(stats *toc.RewriteStats) {
	if p.quiet || stats == nil {
		return
	}

	p.Header("Catalog filter")
	fmt.Fprintf(p.writer, "  entries: %d   kept: %d   dropped: %d\n",
		stats.Entries, stats.Kept, stats.Dropped)

	if len(stats.Reasons) == 0 {
		return
	}

	// Stable output order for scripts and tests
	reasons := make([]string, 0, len(stats.Reasons))
	for reason := range stats.Reasons {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)

	for _, reason := range reasons {
		label := dropReasonLabels[toc.DropReason(reason)]
		if label == "" {
			label = reason
		}
		fmt.Fprintf(p.writer, "  %-40s %d\n", label, stats.Reasons[toc.DropReason(reason)])
	}
}

// ArchiveList renders stored archive metadata as a table
func (p *Printer) ArchiveList(archives []*archive.Metadata) {
	if p.quiet {
		return
	}

	if len(archives) == 0 {
		p.Info("No archives stored")
		return
	}

	p.Header("Archives")
	fmt.Fprintf(p.writer, "  %-36s  %-20s  %-12s  %s\n", "ID", "DATABASE", "SIZE", "CREATED")
	for _, m := range archives {
		fmt.Fprintf(p.writer, "  %-36s  %-20s  %-12s  %s\n",
			m.ID, m.DatabaseName, formatBytes(m.StoredSize),
			m.CreatedAt.Format(time.RFC3339))
	}
}

// DatabaseSize renders the size of a database
func (p *Printer) DatabaseSize(database, pretty string) {
	if p.quiet {
		return
	}
	theme := p.colors.GetTheme()
	fmt.Fprintf(p.writer, "%s: %s\n", database, p.colors.Sprintf(theme.Highlight, "%s", pretty))
}

// formatBytes renders a byte count in human-readable units
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
