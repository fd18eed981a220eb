package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"fsinv/internal/inv"
)

// maxListedErrors bounds the error records printed in a scan summary.
const maxListedErrors = 10

// Printer writes human-readable summaries.
type Printer struct {
	w     io.Writer
	style styler
}

// NewPrinter creates a Printer that colors output when w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, style: styler{enabled: IsTerminal(w)}}
}

func (p *Printer) statusText(s inv.RunStatus) string {
	switch s {
	case inv.StatusComplete:
		return p.style.green(string(s))
	case inv.StatusPartial:
		return p.style.yellow(string(s))
	default:
		return p.style.red(string(s))
	}
}

// Summary prints the outcome of a scan and the reports written for it.
func (p *Printer) Summary(inventory *inv.Inventory, written []string) {
	dirs, files := inventory.Counts()
	fmt.Fprintln(p.w, p.style.bold("=== Inventory Summary ==="))
	fmt.Fprintf(p.w, "Run:         %s\n", inventory.RunID)
	fmt.Fprintf(p.w, "Root:        %s\n", inventory.Root)
	fmt.Fprintf(p.w, "Status:      %s\n", p.statusText(inventory.Status))
	fmt.Fprintf(p.w, "Directories: %d\n", dirs)
	if inventory.IncludeFiles {
		fmt.Fprintf(p.w, "Files:       %d\n", files)
	}
	if inventory.HashEnabled() {
		fmt.Fprintf(p.w, "Algorithm:   %s\n", inventory.Algorithm)
	}
	fmt.Fprintf(p.w, "Duration:    %s\n", formatDuration(inventory.FinishedAt.Sub(inventory.StartedAt)))

	if n := len(inventory.Errors); n > 0 {
		fmt.Fprintln(p.w, p.style.yellow(fmt.Sprintf("Errors:      %d", n)))
		for i, rec := range inventory.Errors {
			if i == maxListedErrors {
				fmt.Fprintf(p.w, "  ... and %d more\n", n-maxListedErrors)
				break
			}
			fmt.Fprintf(p.w, "  %s %s: %s\n", p.style.dim(string(rec.Category)), rec.Path, rec.Message)
		}
	}
	for _, path := range written {
		fmt.Fprintf(p.w, "Wrote %s\n", path)
	}
}

// Runs prints stored runs as a table, newest first.
func (p *Printer) Runs(runs []*inv.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(p.w, "No runs recorded.")
		return
	}
	fmt.Fprintln(p.w, p.style.bold(fmt.Sprintf("%-36s  %-19s  %-9s  %8s  %6s  %s", "RUN", "STARTED", "STATUS", "ENTRIES", "ERRORS", "ROOT")))
	for _, r := range runs {
		pad := strings.Repeat(" ", max(9-len(r.Status), 0))
		fmt.Fprintf(p.w, "%-36s  %-19s  %s%s  %8d  %6d  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			p.statusText(r.Status),
			pad,
			r.EntryCount,
			r.ErrorCount,
			r.Root,
		)
	}
}

// Diff prints the changes between two inventories.
func (p *Printer) Diff(result *inv.DiffResult) {
	for _, c := range result.Changes {
		switch c.Kind {
		case inv.ChangeAdded:
			fmt.Fprintf(p.w, "%s %s\n", p.style.green("+"), c.Path)
		case inv.ChangeRemoved:
			fmt.Fprintf(p.w, "%s %s\n", p.style.red("-"), c.Path)
		case inv.ChangeModified:
			fmt.Fprintf(p.w, "%s %s (%s)\n", p.style.yellow("~"), c.Path, strings.Join(c.Fields, ", "))
		}
	}
	fmt.Fprintf(p.w, "%d added, %d removed, %d modified, %d unchanged\n",
		result.Count(inv.ChangeAdded),
		result.Count(inv.ChangeRemoved),
		result.Count(inv.ChangeModified),
		result.Unchanged,
	)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
