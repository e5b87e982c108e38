package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/slidefetch/slidefetch/internal/httpc"
	"github.com/slidefetch/slidefetch/internal/progress"
	"github.com/slidefetch/slidefetch/internal/store"
	"github.com/slidefetch/slidefetch/internal/task"
)

// HTTPFetcher downloads URLs in-process. Local destinations resume
// partial files via range requests; remote destinations stream through
// the store's writer.
type HTTPFetcher struct {
	Client *httpc.Client
}

// NewHTTPFetcher creates an HTTP fetcher with the given client options.
func NewHTTPFetcher(opts httpc.Options) *HTTPFetcher {
	return &HTTPFetcher{Client: httpc.NewClient(opts)}
}

func (f *HTTPFetcher) Name() string { return "http" }

// Check always succeeds: the fetcher is in-process and works against
// any destination.
func (f *HTTPFetcher) Check(st *store.Store) error { return nil }

func (f *HTTPFetcher) FetchOne(ctx context.Context, t task.Task, opts Options) (int64, error) {
	return Download(ctx, f.Client, t.Ref, t.Dest, opts)
}

// Download transfers url to the destination name dest. It is shared
// with the catalog fetcher, which builds its URLs from file IDs.
func Download(ctx context.Context, client *httpc.Client, url, dest string, opts Options) (int64, error) {
	if dir := opts.Store.LocalDir(); dir != "" {
		return downloadLocal(ctx, client, url, filepath.Join(dir, dest), opts.Log)
	}
	return downloadRemote(ctx, client, url, dest, opts)
}

// downloadLocal writes to a local file, resuming a partial transfer
// when the file already has bytes and the server honors ranges.
func downloadLocal(ctx context.Context, client *httpc.Client, url, path string, log io.Writer) (int64, error) {
	var offset int64
	if info, err := os.Stat(path); err == nil {
		offset = info.Size()
	}

	resp, err := client.GetFrom(ctx, url, offset)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 && resp.Resumed {
		flags |= os.O_APPEND
		fmt.Fprintf(log, "Resuming %s at %s\n", filepath.Base(path), progress.FormatBytes(offset))
	} else {
		flags |= os.O_TRUNC
		fmt.Fprintf(log, "Saving to %s\n", path)
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open destination: %w", err)
	}

	written, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return written, fmt.Errorf("write destination: %w", err)
	}

	fmt.Fprintf(log, "Done: %s (%s)\n", filepath.Base(path), progress.FormatBytes(written))
	return written, nil
}

// downloadRemote streams straight into the destination store. Remote
// objects are all-or-nothing, so there is nothing to resume; an
// aborted writer leaves no partial object behind.
func downloadRemote(ctx context.Context, client *httpc.Client, url, dest string, opts Options) (int64, error) {
	resp, err := client.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	w, err := opts.Store.NewWriter(ctx, dest)
	if err != nil {
		return 0, err
	}

	fmt.Fprintf(opts.Log, "Saving to %s/%s\n", opts.Store.URL(), dest)

	written, err := io.Copy(w, resp.Body)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return written, fmt.Errorf("write destination: %w", err)
	}

	fmt.Fprintf(opts.Log, "Done: %s (%s)\n", dest, progress.FormatBytes(written))
	return written, nil
}
