package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/slidefetch/slidefetch/internal/store"
	"github.com/slidefetch/slidefetch/internal/task"
)

// WgetFetcher shells out to wget for individual transfers. wget owns
// the resume logic (-c) and server-side renames (--content-disposition).
type WgetFetcher struct{}

func (f *WgetFetcher) Name() string { return "wget" }

// Check verifies wget is on PATH and the destination is local.
func (f *WgetFetcher) Check(st *store.Store) error {
	if _, err := exec.LookPath("wget"); err != nil {
		return fmt.Errorf("fetch: wget not found on PATH: %w", err)
	}
	if st.LocalDir() == "" {
		return ErrLocalOnly
	}
	return nil
}

func (f *WgetFetcher) FetchOne(ctx context.Context, t task.Task, opts Options) (int64, error) {
	dir := opts.Store.LocalDir()
	if dir == "" {
		return 0, ErrLocalOnly
	}

	args := []string{"-c", "--content-disposition", "--trust-server-names", "-P", dir}
	if !opts.Stream {
		// Terse output keeps concurrent per-task logs readable.
		args = append(args, "-nv")
	}
	args = append(args, t.Ref)

	cmd := exec.CommandContext(ctx, "wget", args...)
	cmd.Stdout = opts.Log
	cmd.Stderr = opts.Log

	if err := cmd.Run(); err != nil {
		return 0, wrapExecError(err)
	}

	// wget may have renamed via content-disposition; report the size of
	// the expected destination when it is there.
	if info, err := os.Stat(filepath.Join(dir, t.Dest)); err == nil {
		return info.Size(), nil
	}
	return 0, nil
}

// Aria2Fetcher shells out to aria2c with an input list, transferring a
// whole chunk of URLs in one invocation. aria2c writes files directly
// into the destination directory, so no artifact name is returned.
type Aria2Fetcher struct {
	// Concurrency is passed to aria2c as -j (parallel downloads within
	// the invocation).
	Concurrency int
}

func (f *Aria2Fetcher) Name() string { return "aria2c" }

// Check verifies aria2c is on PATH and the destination is local.
func (f *Aria2Fetcher) Check(st *store.Store) error {
	if _, err := exec.LookPath("aria2c"); err != nil {
		return fmt.Errorf("fetch: aria2c not found on PATH: %w", err)
	}
	if st.LocalDir() == "" {
		return ErrLocalOnly
	}
	return nil
}

func (f *Aria2Fetcher) FetchBatch(ctx context.Context, tasks []task.Task, opts Options) (string, error) {
	dir := opts.Store.LocalDir()
	if dir == "" {
		return "", ErrLocalOnly
	}

	listFile, err := writeURLList(tasks)
	if err != nil {
		return "", err
	}
	defer os.Remove(listFile)

	concurrency := f.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	cmd := exec.CommandContext(ctx, "aria2c",
		"-i", listFile,
		"-d", dir,
		"-x", "4",
		"-s", "4",
		"-j", fmt.Sprintf("%d", concurrency),
		"--auto-file-renaming=false",
		"--continue",
		"--content-disposition=true",
	)
	cmd.Stdout = opts.Log
	cmd.Stderr = opts.Log

	if err := cmd.Run(); err != nil {
		return "", wrapExecError(err)
	}
	return "", nil
}

// writeURLList writes task references to a temporary file for -i.
func writeURLList(tasks []task.Task) (string, error) {
	f, err := os.CreateTemp("", "slidefetch-urls-*.txt")
	if err != nil {
		return "", fmt.Errorf("fetch: create url list: %w", err)
	}
	for _, t := range tasks {
		if _, err := fmt.Fprintln(f, t.Ref); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("fetch: write url list: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("fetch: close url list: %w", err)
	}
	return f.Name(), nil
}

// wrapExecError converts a tool's non-zero exit into an ExitError so
// the engine can surface the real code in the result.
func wrapExecError(err error) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Code: ee.ExitCode()}
	}
	return err
}
