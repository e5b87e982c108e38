// Package httpc provides the HTTP client used by in-process fetchers.
//
// The client retries transient failures (network errors and 5xx) with
// exponential backoff and jitter, and exposes offset-based GET for
// resuming partial transfers the way wget -c does. It also surfaces
// Content-Disposition filenames, which slide portals use to attach the
// real file name to opaque download URLs.
package httpc
