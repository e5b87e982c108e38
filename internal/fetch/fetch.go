package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/slidefetch/slidefetch/internal/store"
	"github.com/slidefetch/slidefetch/internal/task"
)

// ErrLocalOnly is returned by Check when a fetcher that shells out to an
// external tool is pointed at a remote destination.
var ErrLocalOnly = errors.New("fetch: destination must be a local directory for this fetcher")

// Options carries the per-invocation collaborators a fetcher needs.
type Options struct {
	// Store is the destination for fetched artifacts.
	Store *store.Store

	// Log receives the fetcher's output for this task. The engine wires
	// it to the per-task log file, and additionally to the terminal in
	// streamed sequential runs. Never nil.
	Log io.Writer

	// Stream indicates live progress output is wanted (sequential runs).
	// Non-streamed fetchers keep output terse to make logs readable.
	Stream bool
}

// Fetcher transfers one task to the destination store.
//
// FetchOne must resume a partial previous transfer when it can, and
// must not re-transfer an already-complete destination. It returns the
// number of bytes it moved (0 when unknown) and an error carrying an
// ExitError when a tool exit code is known.
type Fetcher interface {
	Name() string

	// Check verifies the fetcher can run against the given destination.
	// Called once at startup; a failure here is fatal before any task runs.
	Check(st *store.Store) error

	FetchOne(ctx context.Context, t task.Task, opts Options) (int64, error)
}

// BatchFetcher transfers a chunk of tasks in one invocation. The
// returned artifact is the name of the produced container (an archive
// for catalog sources, "" when the tool writes files directly).
// Extracting archives is the caller's concern, not the engine's.
type BatchFetcher interface {
	Name() string
	Check(st *store.Store) error
	FetchBatch(ctx context.Context, tasks []task.Task, opts Options) (artifact string, err error)
}

// ExitError carries a fetch tool's non-zero exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("fetch: exit status %d", e.Code)
}

// ExitCode maps a fetch error to a result exit code: 0 for nil, the
// tool's code when known, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var xe *ExitError
	if errors.As(err, &xe) {
		return xe.Code
	}
	return 1
}
