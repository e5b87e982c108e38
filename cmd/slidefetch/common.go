package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/slidefetch/slidefetch/internal/catalog"
	"github.com/slidefetch/slidefetch/internal/config"
	"github.com/slidefetch/slidefetch/internal/engine"
	"github.com/slidefetch/slidefetch/internal/fetch"
	"github.com/slidefetch/slidefetch/internal/httpc"
	"github.com/slidefetch/slidefetch/internal/progress"
	"github.com/slidefetch/slidefetch/internal/store"
	"github.com/slidefetch/slidefetch/internal/task"
)

// fetchFlags holds the flags shared by fetch-like commands.
type fetchFlags struct {
	configPath  string
	outDir      string
	logDir      string
	mode        string
	concurrency int
	batchSize   int
	fetcher     string
	altSuffix   string
	sequential  bool
	dryRun      bool
	noSkip      bool
	overwrite   bool
	progress    bool
}

func addFetchFlags(fs *flag.FlagSet) *fetchFlags {
	f := &fetchFlags{}
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.StringVar(&f.outDir, "outdir", "", "Destination directory or bucket URL")
	fs.StringVar(&f.logDir, "logdir", "", "Directory for per-file logs")
	fs.StringVar(&f.mode, "mode", "", "Execution mode: sequential, concurrent, or batch")
	fs.IntVar(&f.concurrency, "concurrency", 0, "Number of parallel downloads")
	fs.IntVar(&f.batchSize, "batch-size", 0, "Files per chunk in batch mode")
	fs.StringVar(&f.fetcher, "fetcher", "", "Fetch tool: http, wget, aria2, or catalog")
	fs.StringVar(&f.altSuffix, "alt-suffix", "", "Alternate suffix checked for existing files")
	fs.BoolVar(&f.sequential, "sequential", false, "Download one file at a time with live output")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Show what would be downloaded without fetching")
	fs.BoolVar(&f.noSkip, "no-skip-existing", false, "Re-enumerate files that already exist")
	fs.BoolVar(&f.overwrite, "overwrite", false, "Remove existing files before downloading")
	fs.BoolVar(&f.progress, "progress", false, "Print periodic aggregate progress")
	return f
}

// loadConfig layers the config file, environment, and explicitly-set
// flags, in that order.
func (f *fetchFlags) loadConfig(fs *flag.FlagSet) (config.Config, error) {
	cfg := config.Default()

	if f.configPath != "" {
		loaded, err := config.LoadFromFile(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "outdir":
			cfg.OutDir = f.outDir
		case "logdir":
			cfg.LogDir = f.logDir
		case "mode":
			cfg.Mode = f.mode
		case "concurrency":
			cfg.Concurrency = f.concurrency
		case "batch-size":
			cfg.BatchSize = f.batchSize
		case "fetcher":
			cfg.Fetcher = f.fetcher
		case "alt-suffix":
			cfg.AltSuffix = f.altSuffix
		case "sequential":
			if f.sequential {
				cfg.Mode = config.ModeSequential
			}
		case "dry-run":
			cfg.DryRun = f.dryRun
		case "no-skip-existing":
			cfg.SkipExisting = !f.noSkip
		case "overwrite":
			cfg.Overwrite = f.overwrite
		case "progress":
			cfg.Progress = f.progress
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func httpOptions(cfg config.Config) httpc.Options {
	opts := httpc.DefaultOptions()
	if cfg.Retry.Attempts > 0 {
		opts.RetryAttempts = cfg.Retry.Attempts
	}
	if cfg.Retry.Backoff > 0 {
		opts.RetryBackoff = cfg.Retry.Backoff
	}
	if cfg.Retry.MaxBackoff > 0 {
		opts.RetryMaxBackoff = cfg.Retry.MaxBackoff
	}
	return opts
}

// buildFetchers maps the configured fetcher name to implementations.
// The batch fetcher is nil for fetchers that have no batched form.
func buildFetchers(cfg config.Config, cat *catalog.Client) (fetch.Fetcher, fetch.BatchFetcher, error) {
	switch cfg.Fetcher {
	case config.FetcherHTTP:
		return fetch.NewHTTPFetcher(httpOptions(cfg)), nil, nil
	case config.FetcherWget:
		return &fetch.WgetFetcher{}, nil, nil
	case config.FetcherAria2:
		return nil, &fetch.Aria2Fetcher{Concurrency: cfg.Concurrency}, nil
	case config.FetcherCatalog:
		if cat == nil {
			cat = catalog.NewClient(catalog.Options{
				BaseURL:           cfg.Catalog.API,
				HTTP:              httpOptions(cfg),
				RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
			})
		}
		return catalog.NewFetcher(cat), catalog.NewBatchFetcher(cat), nil
	default:
		return nil, nil, fmt.Errorf("unknown fetcher %q", cfg.Fetcher)
	}
}

func strategyFor(mode string) engine.Strategy {
	switch mode {
	case config.ModeSequential:
		return engine.Sequential
	case config.ModeBatch:
		return engine.Batch
	default:
		return engine.Concurrent
	}
}

// checkFetchers runs the startup capability checks and maps failures
// to exit codes.
func checkFetchers(st *store.Store, fetcher fetch.Fetcher, batcher fetch.BatchFetcher) int {
	check := func(name string, err error) int {
		if err == nil {
			return ExitSuccess
		}
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", name, err)
		if errors.Is(err, fetch.ErrLocalOnly) {
			return ExitInvalidArgs
		}
		return ExitToolMissing
	}
	if fetcher != nil {
		if code := check(fetcher.Name(), fetcher.Check(st)); code != ExitSuccess {
			return code
		}
	}
	if batcher != nil {
		if code := check(batcher.Name(), batcher.Check(st)); code != ExitSuccess {
			return code
		}
	}
	return ExitSuccess
}

// executeTasks runs a partition through the engine and prints the
// summary. Returns ExitGeneralError when any task failed.
func executeTasks(ctx context.Context, cfg config.Config, st *store.Store, fetcher fetch.Fetcher, batcher fetch.BatchFetcher, part task.Partition, source string) int {
	if cfg.DryRun {
		part.WriteDryRun(os.Stdout, st.URL())
		return ExitSuccess
	}
	if len(part.Fetch) == 0 {
		for _, t := range part.Skipped {
			fmt.Printf("Skipping %s (already exists)\n", t.Dest)
		}
		fmt.Println("Nothing to fetch.")
		return ExitSuccess
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating log directory: %v\n", err)
		return ExitGeneralError
	}

	for _, t := range part.Skipped {
		fmt.Printf("Skipping %s (already exists)\n", t.Dest)
	}

	var reporter *progress.Reporter
	if cfg.Progress {
		var totalBytes int64
		for _, t := range part.Fetch {
			totalBytes += t.Size
		}
		reporter = progress.NewReporter(progress.Options{
			TotalTasks: len(part.Fetch),
			TotalBytes: totalBytes,
			Workers:    cfg.Concurrency,
			Source:     source,
		})
		reporter.Start()
		defer reporter.Stop()
	}

	eng := engine.New(fetcher, batcher, engine.Options{
		Strategy:    strategyFor(cfg.Mode),
		Concurrency: cfg.Concurrency,
		BatchSize:   cfg.BatchSize,
		LogDir:      cfg.LogDir,
		Store:       st,
		Overwrite:   cfg.Overwrite,
		AltSuffix:   cfg.AltSuffix,
		Reporter:    reporter,
	})

	results := eng.Run(ctx, part.Fetch)

	summary := task.Summarize(results, len(part.Skipped))
	summary.Write(os.Stdout)

	if summary.Failed > 0 {
		return ExitGeneralError
	}
	return ExitSuccess
}
