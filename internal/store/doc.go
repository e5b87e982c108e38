// Package store abstracts the download destination behind gocloud.dev/blob.
//
// The default destination is a local directory (fileblob), but any
// bucket URL with a registered driver works, e.g. s3:// or gs://.
// The store answers the "already downloaded?" question for the task
// enumerator, removes files for overwrite runs, and hands out writers
// for in-process fetchers.
package store
