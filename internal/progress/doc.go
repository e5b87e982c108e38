// Package progress provides progress reporting for download runs.
//
// This package outputs human-readable progress information to stdout,
// including task counts, bytes transferred, and average speed.
//
// # Usage
//
//	reporter := progress.NewReporter(Options{
//	    TotalTasks: len(tasks),
//	    Workers:    concurrency,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	// Update as tasks complete
//	reporter.TaskCompleted(bytesFetched)
//
// # Output Format
//
//	[slidefetch] Fetching: breast_wsi_urls.txt
//	[slidefetch] Files: 312 | Total size: 1.72 TB | Workers: 8
//	[slidefetch] Progress: 120 done | 2 failed | 8 active | 182 pending | 640.11 GB fetched | 1.01 GB/s avg
package progress
