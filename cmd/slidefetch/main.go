package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitToolMissing  = 3
	ExitStorageError = 4
	ExitCatalogError = 5
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "fetch":
		return runFetch(cmdArgs)
	case "catalog":
		return runCatalog(cmdArgs)
	case "prepare":
		return runPrepare(cmdArgs)
	case "run":
		return runPipeline(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: slidefetch <command> [options]

Commands:
  fetch    Download whole-slide images from a URL list
  catalog  Query a data-portal catalog and download the hits
  prepare  Filter a portal CSV export into a URL list
  run      Execute a prepare-then-fetch pipeline from a YAML file

Run 'slidefetch <command> -h' for command-specific help.`)
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[slidefetch] Received interrupt, shutting down...")
		cancel()
	}()

	return ctx, cancel
}
