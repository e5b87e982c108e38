package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/slidefetch/slidefetch/internal/config"
	"github.com/slidefetch/slidefetch/internal/portal"
)

func runPrepare(args []string) int {
	fs := flag.NewFlagSet("prepare", flag.ExitOnError)
	csvPath := fs.String("csv", "GTEx_Portal.csv", "Portal CSV export path")
	outURLs := fs.String("out-urls", "breast_wsi_urls.txt", "Output URL list")
	outMeta := fs.String("out-meta", "breast_mammary_metadata.csv", "Filtered metadata CSV")
	tissue := fs.String("tissue", "", "Tissue pattern (default: Mammary|Breast)")
	sex := fs.String("sex", "female", "Donor sex filter (empty = all)")
	baseURL := fs.String("base-url", "", "Image download base URL")
	max := fs.Int("max", 0, "Limit number of specimen IDs (0 = no limit)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: slidefetch prepare [options]

Filter a portal CSV export by tissue and donor sex, extract the
specimen IDs, and write a download URL list plus the filtered
metadata rows.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	stage := config.PrepareStage{
		CSV:      *csvPath,
		URLFile:  *outURLs,
		Metadata: *outMeta,
		Tissue:   *tissue,
		Sex:      *sex,
		BaseURL:  *baseURL,
		Max:      *max,
	}
	urls, code := prepareURLList(stage)
	if code != ExitSuccess {
		return code
	}
	fmt.Printf("Wrote %d URLs to %s\n", len(urls), stage.URLFile)
	return ExitSuccess
}

// prepareURLList runs a prepare stage and returns the URLs it wrote.
// Shared with the pipeline command.
func prepareURLList(stage config.PrepareStage) ([]string, int) {
	p, err := portal.PrepareFile(stage.CSV, portal.Options{
		BaseURL: stage.BaseURL,
		Tissue:  stage.Tissue,
		Sex:     stage.Sex,
		Max:     stage.Max,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing URL list: %v\n", err)
		return nil, ExitGeneralError
	}

	urlFile, err := os.Create(stage.URLFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", stage.URLFile, err)
		return nil, ExitGeneralError
	}
	err = p.WriteURLList(urlFile)
	if cerr := urlFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", stage.URLFile, err)
		return nil, ExitGeneralError
	}

	if stage.Metadata != "" {
		metaFile, err := os.Create(stage.Metadata)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", stage.Metadata, err)
			return nil, ExitGeneralError
		}
		err = p.WriteMetadata(metaFile)
		if cerr := metaFile.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", stage.Metadata, err)
			return nil, ExitGeneralError
		}
	}

	return p.URLs, ExitSuccess
}
