package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/slidefetch/slidefetch/internal/config"
	"github.com/slidefetch/slidefetch/internal/store"
	"github.com/slidefetch/slidefetch/internal/task"
)

func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	flags := addFetchFlags(fs)
	urlFile := fs.String("urlfile", "", "File with one download URL per line (required)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: slidefetch fetch [options]

Download every URL in a list file to the destination, skipping files
that already exist. Failed downloads are reported at the end; re-run
the same command to retry only what is missing.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, err := flags.loadConfig(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if *urlFile != "" {
		cfg.URLFile = *urlFile
	}
	if cfg.URLFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -urlfile is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	refs, err := task.ReadRefFile(cfg.URLFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading URL list: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	return fetchRefs(ctx, cfg, refs, cfg.URLFile)
}

// fetchRefs enumerates refs against the destination and runs the
// resulting tasks. Shared with the pipeline command.
func fetchRefs(ctx context.Context, cfg config.Config, refs []string, source string) int {
	st, err := store.Open(ctx, cfg.OutDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening destination: %v\n", err)
		return ExitStorageError
	}
	defer st.Close()

	fetcher, batcher, err := buildFetchers(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	// A batch-only tool implies batch mode.
	if fetcher == nil && batcher != nil {
		cfg.Mode = config.ModeBatch
	}
	if code := checkFetchers(st, fetcher, batcher); code != ExitSuccess {
		return code
	}

	enum := task.Enumerator{
		Store:        st,
		SkipExisting: cfg.SkipExisting,
		AltSuffix:    cfg.AltSuffix,
	}
	part, err := enum.Enumerate(ctx, refs)
	if err != nil {
		if errors.Is(err, task.ErrEmptyInput) {
			fmt.Fprintln(os.Stderr, "Error: URL list is empty")
			return ExitInvalidArgs
		}
		fmt.Fprintf(os.Stderr, "Error enumerating tasks: %v\n", err)
		return ExitStorageError
	}

	return executeTasks(ctx, cfg, st, fetcher, batcher, part, source)
}
