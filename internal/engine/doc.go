// Package engine drives enumerated download tasks to completion.
//
// An Engine takes the fetch partition produced by task enumeration and
// executes it under one of three strategies: Sequential (one task at a
// time, output streamed to the terminal), Concurrent (a bounded worker
// pool with per-task log files), or Batch (fixed-size chunks handed to
// a batch-capable fetcher). Whatever the strategy, every submitted
// task yields exactly one Result and a failing task never stops the
// run.
package engine
