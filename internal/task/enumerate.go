package task

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/slidefetch/slidefetch/internal/store"
)

// ErrEmptyInput is returned when enumeration is given no references.
// Callers decide whether this is fatal.
var ErrEmptyInput = errors.New("task: no references in input")

// ParseRefs reads raw references from r, one per line. Blank lines and
// lines beginning with '#' are ignored.
func ParseRefs(r io.Reader) ([]string, error) {
	var refs []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("task: read references: %w", err)
	}
	return refs, nil
}

// ReadRefFile loads references from a list file.
func ReadRefFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("task: open reference list: %w", err)
	}
	defer f.Close()
	return ParseRefs(f)
}

// Enumerator converts raw references into a deduplicated, partitioned
// set of tasks. It reads the output store but never mutates it.
type Enumerator struct {
	// Store answers existence checks against the destination.
	Store *store.Store

	// SkipExisting moves already-satisfied tasks into the skipped set.
	SkipExisting bool

	// AltSuffix is the canonical suffix a fetch may append server-side
	// (e.g. ".svs"); the existence check considers both names.
	AltSuffix string
}

// Enumerate derives a task per reference and partitions the set.
func (e *Enumerator) Enumerate(ctx context.Context, refs []string) (Partition, error) {
	tasks := make([]Task, 0, len(refs))
	for _, ref := range refs {
		dest := DeriveDest(ref)
		tasks = append(tasks, Task{ID: dest, Ref: ref, Dest: dest})
	}
	return e.EnumerateTasks(ctx, tasks)
}

// EnumerateTasks partitions pre-built tasks (catalog sources construct
// their own, carrying IDs and expected sizes).
//
// Two distinct references resolving to the same destination name would
// race on the same output file, so duplicates are dropped here: the
// first reference wins. Input order is preserved within each partition.
// The existence check reflects store state at enumeration time only; a
// file appearing mid-run is not re-checked.
func (e *Enumerator) EnumerateTasks(ctx context.Context, tasks []Task) (Partition, error) {
	if len(tasks) == 0 {
		return Partition{}, ErrEmptyInput
	}

	var p Partition
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.Dest] {
			continue
		}
		seen[t.Dest] = true

		if e.SkipExisting {
			ok, _, err := e.Store.Exists(ctx, t.Dest, e.AltSuffix)
			if err != nil {
				return Partition{}, err
			}
			if ok {
				p.Skipped = append(p.Skipped, t)
				continue
			}
		}
		p.Fetch = append(p.Fetch, t)
	}

	return p, nil
}
