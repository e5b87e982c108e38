package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/slidefetch/slidefetch/internal/catalog"
	"github.com/slidefetch/slidefetch/internal/config"
	"github.com/slidefetch/slidefetch/internal/progress"
	"github.com/slidefetch/slidefetch/internal/store"
	"github.com/slidefetch/slidefetch/internal/task"
)

func runCatalog(args []string) int {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	flags := addFetchFlags(fs)
	api := fs.String("api", "", "Catalog API root")
	project := fs.String("project", "", "Project to query")
	dataType := fs.String("data-type", "", "Data type to query")
	max := fs.Int("max", 0, "Cap on the number of files (0 = all)")
	preview := fs.Bool("preview", false, "List matching files without downloading")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: slidefetch catalog [options]

Query a data-portal catalog for files by project and data type, then
download them. Batch mode requests chunks of files as single archives
through the catalog's data endpoint.

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
	cfg.Fetcher = config.FetcherCatalog
	if *api != "" {
		cfg.Catalog.API = *api
	}
	if *project != "" {
		cfg.Catalog.Project = *project
	}
	if *dataType != "" {
		cfg.Catalog.DataType = *dataType
	}
	if *max > 0 {
		cfg.Catalog.Max = *max
	}

	ctx, cancel := signalContext()
	defer cancel()

	return fetchCatalog(ctx, cfg, *preview)
}

// fetchCatalog queries the catalog and runs the hits as download
// tasks. Shared with the pipeline command.
func fetchCatalog(ctx context.Context, cfg config.Config, preview bool) int {
	cat := catalog.NewClient(catalog.Options{
		BaseURL:           cfg.Catalog.API,
		HTTP:              httpOptions(cfg),
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
	})

	entries, err := cat.Files(ctx, catalog.Query{
		Project:  cfg.Catalog.Project,
		DataType: cfg.Catalog.DataType,
		Max:      cfg.Catalog.Max,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying catalog: %v\n", err)
		return ExitCatalogError
	}
	if len(entries) == 0 {
		fmt.Println("Catalog query matched no files.")
		return ExitSuccess
	}

	fmt.Printf("Catalog matched %d file(s), %s total\n",
		len(entries), progress.FormatBytes(catalog.TotalSize(entries)))

	if preview {
		for _, e := range entries {
			fmt.Printf("  %s  %10s  %s\n", e.ID, progress.FormatBytes(e.Size), e.Name)
		}
		return ExitSuccess
	}

	st, err := store.Open(ctx, cfg.OutDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening destination: %v\n", err)
		return ExitStorageError
	}
	defer st.Close()

	fetcher, batcher, err := buildFetchers(cfg, cat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if code := checkFetchers(st, fetcher, batcher); code != ExitSuccess {
		return code
	}

	enum := task.Enumerator{
		Store:        st,
		SkipExisting: cfg.SkipExisting,
		AltSuffix:    cfg.AltSuffix,
	}
	part, err := enum.EnumerateTasks(ctx, cat.Tasks(entries))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error enumerating tasks: %v\n", err)
		return ExitStorageError
	}

	source := cfg.Catalog.Project
	if cfg.Catalog.DataType != "" {
		source += " / " + cfg.Catalog.DataType
	}
	return executeTasks(ctx, cfg, st, fetcher, batcher, part, source)
}
