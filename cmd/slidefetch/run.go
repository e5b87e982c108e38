package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/slidefetch/slidefetch/internal/config"
	"github.com/slidefetch/slidefetch/internal/task"
)

func runPipeline(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Pipeline YAML file (required)")
	dryRun := fs.Bool("dry-run", false, "Show what would be downloaded without fetching")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: slidefetch run -config pipeline.yaml

Execute a pipeline: optionally filter a portal CSV into a URL list,
then fetch from the URL list or a catalog query, all driven by one
YAML file.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -config is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	p, err := config.LoadPipeline(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if err := p.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	cfg := p.Fetch
	if *dryRun {
		cfg.DryRun = true
	}

	runID := uuid.NewString()
	fmt.Printf("[slidefetch] Run %s\n", runID)
	// Keep each run's logs apart so reruns never interleave.
	cfg.LogDir = filepath.Join(cfg.LogDir, runID)

	ctx, cancel := signalContext()
	defer cancel()

	switch p.Source {
	case config.SourceCatalog:
		return fetchCatalog(ctx, cfg, false)
	default:
		urlFile := cfg.URLFile
		if p.Prepare != nil {
			urls, code := prepareURLList(*p.Prepare)
			if code != ExitSuccess {
				return code
			}
			fmt.Printf("Prepared %d URLs in %s\n", len(urls), p.Prepare.URLFile)
			urlFile = p.Prepare.URLFile
		}

		refs, err := task.ReadRefFile(urlFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading URL list: %v\n", err)
			return ExitGeneralError
		}
		return fetchRefs(ctx, cfg, refs, urlFile)
	}
}
