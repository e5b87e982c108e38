package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/slidefetch/slidefetch/internal/fetch"
	"github.com/slidefetch/slidefetch/internal/progress"
	"github.com/slidefetch/slidefetch/internal/store"
	"github.com/slidefetch/slidefetch/internal/task"
)

// Fetcher downloads individual catalog files through the data
// endpoint. It satisfies fetch.Fetcher.
type Fetcher struct {
	client *Client
}

// NewFetcher wraps a catalog client as a per-file fetcher.
func NewFetcher(c *Client) *Fetcher { return &Fetcher{client: c} }

func (f *Fetcher) Name() string { return "catalog" }

// Check always succeeds: downloads stream through the store and work
// against any destination.
func (f *Fetcher) Check(st *store.Store) error { return nil }

func (f *Fetcher) FetchOne(ctx context.Context, t task.Task, opts fetch.Options) (int64, error) {
	return fetch.Download(ctx, f.client.http, f.client.DataURL(t.ID), t.Dest, opts)
}

// BatchFetcher requests a chunk of catalog files in one call to the
// data endpoint, which answers with a single archive. The archive is
// stored as-is; extraction is left to the operator.
type BatchFetcher struct {
	client *Client
}

// NewBatchFetcher wraps a catalog client as a chunk fetcher.
func NewBatchFetcher(c *Client) *BatchFetcher { return &BatchFetcher{client: c} }

func (b *BatchFetcher) Name() string { return "catalog" }

func (b *BatchFetcher) Check(st *store.Store) error { return nil }

func (b *BatchFetcher) FetchBatch(ctx context.Context, tasks []task.Task, opts fetch.Options) (string, error) {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}

	body, err := json.Marshal(map[string][]string{"ids": ids})
	if err != nil {
		return "", err
	}

	resp, err := b.client.http.Post(ctx, b.client.base+"/data", "application/json", body)
	if err != nil {
		return "", fmt.Errorf("catalog: batch request: %w", err)
	}
	defer resp.Body.Close()

	name := resp.Filename
	if name == "" {
		name = "catalog-batch-" + uuid.NewString() + ".tar.gz"
	}

	fmt.Fprintf(opts.Log, "Requesting %d file(s) as %s\n", len(ids), name)

	w, err := opts.Store.NewWriter(ctx, name)
	if err != nil {
		return "", err
	}

	written, err := io.Copy(w, resp.Body)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("catalog: write archive: %w", err)
	}

	fmt.Fprintf(opts.Log, "Done: %s (%s)\n", name, progress.FormatBytes(written))
	return name, nil
}
