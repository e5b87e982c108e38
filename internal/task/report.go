package task

import (
	"fmt"
	"io"

	"github.com/slidefetch/slidefetch/internal/progress"
)

// RunSummary aggregates the outcome counts of one engine run.
type RunSummary struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
}

// Summarize folds results plus the enumerator's skipped count into a
// RunSummary. Zero results is a valid, all-zero summary.
func Summarize(results []Result, skipped int) RunSummary {
	s := RunSummary{Attempted: len(results), Skipped: skipped}
	for _, r := range results {
		switch r.Outcome {
		case Success:
			s.Succeeded++
		case Failed:
			s.Failed++
		}
	}
	return s
}

// Write prints the summary in the tool's report format.
func (s RunSummary) Write(w io.Writer) {
	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "  Total attempted: %d\n", s.Attempted)
	fmt.Fprintf(w, "  Successful: %d\n", s.Succeeded)
	fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped (already present): %d\n", s.Skipped)
	}
}

// WriteDryRun prints the partition without touching any fetcher or the
// destination. Running the engine afterwards on an unchanged store acts
// on exactly this partition.
func (p Partition) WriteDryRun(w io.Writer, dest string) {
	fmt.Fprintln(w, "Dry run:")
	fmt.Fprintf(w, "  Destination: %s\n", dest)

	if len(p.Skipped) > 0 {
		fmt.Fprintln(w, "\n  Skipped (already exist):")
		for _, t := range p.Skipped {
			fmt.Fprintf(w, "   - %s\n", t.Dest)
		}
	}

	if len(p.Fetch) == 0 {
		fmt.Fprintln(w, "\n  Nothing to fetch.")
		return
	}

	fmt.Fprintln(w, "\n  Would fetch:")
	for _, t := range p.Fetch {
		if t.Size > 0 {
			fmt.Fprintf(w, "   - %s (%s)\n", t.Ref, progress.FormatBytes(t.Size))
		} else {
			fmt.Fprintf(w, "   - %s\n", t.Ref)
		}
	}
}
