package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/slidefetch/slidefetch/internal/fetch"
	"github.com/slidefetch/slidefetch/internal/progress"
	"github.com/slidefetch/slidefetch/internal/store"
	"github.com/slidefetch/slidefetch/internal/task"
)

// Strategy selects how the engine drives the fetch primitives.
type Strategy int

const (
	// Sequential processes tasks one at a time in input order, with the
	// fetcher's live output duplicated to the terminal and the task log.
	Sequential Strategy = iota

	// Concurrent drains the task set with a bounded worker pool. Output
	// goes only to per-task logs; completion lines print in completion
	// order, not submission order.
	Concurrent

	// Batch partitions tasks into fixed-size chunks and hands each
	// chunk to the batch fetcher, one chunk after another.
	Batch
)

// Options configures an engine run.
type Options struct {
	Strategy    Strategy
	Concurrency int

	// BatchSize is the chunk size for the Batch strategy. Zero or
	// negative means a single chunk holding every task.
	BatchSize int

	// LogDir receives one uniquely-named log file per task (or per
	// chunk in Batch mode). Must exist before Run.
	LogDir string

	// Store is the destination; used for overwrite removal and handed
	// to fetchers.
	Store *store.Store

	// Overwrite removes an existing destination before fetching it.
	Overwrite bool

	// AltSuffix is the canonical suffix considered by overwrite removal
	// (matching the enumerator's existence rule).
	AltSuffix string

	// Output is the terminal for report lines. Default: os.Stdout.
	Output io.Writer

	// Reporter is an optional aggregate progress reporter.
	Reporter *progress.Reporter
}

// Engine runs enumerated tasks to completion against fetch primitives.
// Every submitted task yields exactly one Result; a task's failure
// never aborts the rest of the run.
type Engine struct {
	fetcher fetch.Fetcher
	batcher fetch.BatchFetcher
	opts    Options
}

// New creates an engine. batcher may be nil unless the Batch strategy
// is used.
func New(fetcher fetch.Fetcher, batcher fetch.BatchFetcher, opts Options) *Engine {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Engine{fetcher: fetcher, batcher: batcher, opts: opts}
}

// Run executes the tasks under the configured strategy and returns one
// Result per task. Per-task failures are absorbed into Results; Run
// itself fails for nothing.
func (e *Engine) Run(ctx context.Context, tasks []task.Task) []task.Result {
	if len(tasks) == 0 {
		return nil
	}

	switch e.opts.Strategy {
	case Batch:
		return e.runBatch(ctx, tasks)
	case Concurrent:
		if e.opts.Concurrency > 1 {
			return e.runConcurrent(ctx, tasks)
		}
		return e.runSequential(ctx, tasks)
	default:
		return e.runSequential(ctx, tasks)
	}
}

// runSequential streams each fetch to the terminal and the task log,
// in input order.
func (e *Engine) runSequential(ctx context.Context, tasks []task.Task) []task.Result {
	total := len(tasks)
	results := make([]task.Result, 0, total)

	for i, t := range tasks {
		res := e.runOne(ctx, t, true)
		e.report(i+1, total, t, res)
		results = append(results, res)
	}
	return results
}

// runConcurrent drains the tasks with a bounded pool. Results are
// reported as they complete.
func (e *Engine) runConcurrent(ctx context.Context, tasks []task.Task) []task.Result {
	total := len(tasks)
	results := make([]task.Result, 0, total)
	resCh := make(chan taskResult)

	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for _, t := range tasks {
		g.Go(func() error {
			resCh <- taskResult{t: t, res: e.runOne(ctx, t, false)}
			return nil
		})
	}
	go func() {
		g.Wait()
		close(resCh)
	}()

	done := 0
	for r := range resCh {
		done++
		e.report(done, total, r.t, r.res)
		results = append(results, r.res)
	}
	return results
}

type taskResult struct {
	t   task.Task
	res task.Result
}

// runBatch hands fixed-size chunks to the batch fetcher, sequentially.
// A chunk's outcome is attributed to every member task.
func (e *Engine) runBatch(ctx context.Context, tasks []task.Task) []task.Result {
	chunks := chunkTasks(tasks, e.opts.BatchSize)
	total := len(chunks)
	results := make([]task.Result, 0, len(tasks))

	for ci, chunk := range chunks {
		fmt.Fprintf(e.opts.Output, "[Batch %d/%d] Fetching %d file(s)...\n", ci+1, total, len(chunk))
		results = append(results, e.runChunk(ctx, ci, chunk)...)
	}
	return results
}

func (e *Engine) runChunk(ctx context.Context, idx int, chunk []task.Task) []task.Result {
	logPath := filepath.Join(e.opts.LogDir, fmt.Sprintf("%s-chunk-%03d.log", e.batcherName(), idx))

	fail := func(err error) []task.Result {
		code := fetch.ExitCode(err)
		fmt.Fprintf(e.opts.Output, "[Batch %d] Failed (exit %d) - see %s\n", idx+1, code, logPath)
		results := make([]task.Result, 0, len(chunk))
		for _, t := range chunk {
			results = append(results, task.Result{
				TaskID:   t.ID,
				Outcome:  task.Failed,
				ExitCode: code,
				LogPath:  logPath,
				Err:      err.Error(),
			})
		}
		return results
	}

	if e.batcher == nil {
		return fail(fmt.Errorf("engine: no batch fetcher configured"))
	}

	if e.opts.Overwrite {
		for _, t := range chunk {
			if err := e.removeExisting(ctx, t); err != nil {
				return fail(err)
			}
		}
	}

	logf, err := os.Create(logPath)
	if err != nil {
		return fail(fmt.Errorf("engine: create chunk log: %w", err))
	}

	artifact, err := e.batcher.FetchBatch(ctx, chunk, fetch.Options{
		Store: e.opts.Store,
		Log:   logf,
	})
	logf.Close()

	if err != nil {
		return fail(err)
	}

	if artifact != "" {
		fmt.Fprintf(e.opts.Output, "[Batch %d] Archive: %s (extract separately)\n", idx+1, artifact)
	}

	results := make([]task.Result, 0, len(chunk))
	for _, t := range chunk {
		results = append(results, task.Result{
			TaskID:  t.ID,
			Outcome: task.Success,
			LogPath: logPath,
		})
	}
	return results
}

// runOne executes a single task, writing fetch output to its dedicated
// log (and the terminal when streamed). All failures become a Failed
// result; nothing propagates.
func (e *Engine) runOne(ctx context.Context, t task.Task, stream bool) task.Result {
	if e.opts.Reporter != nil {
		e.opts.Reporter.TaskStarted()
	}

	res := e.fetchOne(ctx, t, stream)

	if e.opts.Reporter != nil {
		if res.Outcome == task.Success {
			e.opts.Reporter.TaskCompleted(res.bytes)
		} else {
			e.opts.Reporter.TaskFailed()
		}
	}
	return res.Result
}

type oneResult struct {
	task.Result
	bytes int64
}

func (e *Engine) fetchOne(ctx context.Context, t task.Task, stream bool) oneResult {
	logPath := filepath.Join(e.opts.LogDir, t.Dest+".log")

	fail := func(err error) oneResult {
		return oneResult{Result: task.Result{
			TaskID:   t.ID,
			Outcome:  task.Failed,
			ExitCode: fetch.ExitCode(err),
			LogPath:  logPath,
			Err:      err.Error(),
		}}
	}

	if e.opts.Overwrite {
		if err := e.removeExisting(ctx, t); err != nil {
			return fail(err)
		}
	}

	logf, err := os.Create(logPath)
	if err != nil {
		return fail(fmt.Errorf("engine: create task log: %w", err))
	}

	var sink io.Writer = logf
	if stream {
		sink = io.MultiWriter(e.opts.Output, logf)
	}

	written, err := e.fetcher.FetchOne(ctx, t, fetch.Options{
		Store:  e.opts.Store,
		Log:    sink,
		Stream: stream,
	})
	logf.Close()

	if err != nil {
		return fail(err)
	}

	return oneResult{
		Result: task.Result{TaskID: t.ID, Outcome: task.Success, LogPath: logPath},
		bytes:  written,
	}
}

// removeExisting clears a destination (and its alternate-suffix twin)
// ahead of an overwriting fetch.
func (e *Engine) removeExisting(ctx context.Context, t task.Task) error {
	if err := e.opts.Store.Remove(ctx, t.Dest); err != nil {
		return err
	}
	if e.opts.AltSuffix != "" {
		return e.opts.Store.Remove(ctx, t.Dest+e.opts.AltSuffix)
	}
	return nil
}

func (e *Engine) report(n, total int, t task.Task, res task.Result) {
	if res.Outcome == task.Success {
		fmt.Fprintf(e.opts.Output, "[%d/%d] Downloaded: %s\n", n, total, t.Dest)
		return
	}
	fmt.Fprintf(e.opts.Output, "[%d/%d] Failed: %s (exit %d) - see %s\n", n, total, t.Dest, res.ExitCode, res.LogPath)
}

func (e *Engine) batcherName() string {
	if e.batcher == nil {
		return "batch"
	}
	return e.batcher.Name()
}

// chunkTasks splits tasks into chunks of at most size. Zero or negative
// size yields one chunk with everything.
func chunkTasks(tasks []task.Task, size int) [][]task.Task {
	if size <= 0 || size >= len(tasks) {
		return [][]task.Task{tasks}
	}
	var chunks [][]task.Task
	for start := 0; start < len(tasks); start += size {
		end := start + size
		if end > len(tasks) {
			end = len(tasks)
		}
		chunks = append(chunks, tasks[start:end])
	}
	return chunks
}
