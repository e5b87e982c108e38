package task

import "strings"

// Task is one unit of work mapping a source reference to a destination
// file. Tasks are immutable once enumerated.
type Task struct {
	// ID uniquely identifies the task within a run. For URL sources it
	// equals Dest; catalog sources use the catalog file ID.
	ID string

	// Ref is the source reference: a URL or a catalog identifier.
	Ref string

	// Dest is the destination object name in the output store.
	Dest string

	// Size is the expected size in bytes, or 0 when unknown.
	Size int64
}

// Outcome classifies a task result.
type Outcome int

const (
	Success Outcome = iota
	Failed
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result records the outcome of exactly one task. In batch mode one
// fetch produces a Result per member task.
type Result struct {
	TaskID   string
	Outcome  Outcome
	ExitCode int
	LogPath  string
	Err      string
}

// Partition is the enumerator's split of the input into work and
// already-satisfied tasks. Order within each slice follows input order.
type Partition struct {
	Fetch   []Task
	Skipped []Task
}

// DeriveDest derives a destination name from a source reference: the
// last non-empty path segment, or "download" when derivation yields
// nothing (a bare "/" or empty reference).
func DeriveDest(ref string) string {
	trimmed := strings.TrimRight(ref, "/")
	name := trimmed
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		name = trimmed[i+1:]
	}
	if name == "" {
		return "download"
	}
	return name
}
