// Package fetch defines the pluggable transfer primitives the engine
// drives: FetchOne for individual transfers and FetchBatch for chunked
// bulk transfers.
//
// Three adapters are provided: an in-process HTTP fetcher (resumable
// range requests, works against local and remote destinations), a wget
// adapter, and an aria2c list adapter. The external-tool adapters
// require a local destination directory and report availability via
// Check before any task runs.
package fetch
