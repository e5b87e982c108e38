// Package task defines the download task model and the enumerator that
// turns raw references into a partitioned, deduplicated work set.
//
// A Task maps one source reference (URL or catalog ID) to a destination
// name. The Enumerator consults the destination store to split the
// input into tasks to fetch and tasks already satisfied on disk, and
// drops duplicate destination names so no two tasks ever write the same
// file. Results and RunSummary close the loop after the engine runs.
package task
