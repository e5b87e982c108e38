package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"

	"github.com/slidefetch/slidefetch/internal/httpc"
	"github.com/slidefetch/slidefetch/internal/store"
)

func testClientOptions() httpc.Options {
	return httpc.Options{
		MaxIdleConnsPerHost: 10,
		Timeout:             5 * time.Second,
		RetryAttempts:       1,
		RetryBackoff:        10 * time.Millisecond,
		RetryMaxBackoff:     20 * time.Millisecond,
	}
}

// rangeServer serves data with byte-range support.
func rangeServer(data []byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" {
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			w.Write(data)
			return
		}
		var start int64
		fmt.Sscanf(rangeHeader, "bytes=%d-", &start)
		if start >= int64(len(data)) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, len(data)-1, len(data)))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)-int(start)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(data[start:])
	}))
}

func TestHTTPFetchOneLocal(t *testing.T) {
	ctx := context.Background()
	data := []byte("whole slide image bytes")
	server := rangeServer(data)
	defer server.Close()

	dir := t.TempDir()
	st, err := store.Open(ctx, dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	f := NewHTTPFetcher(testClientOptions())
	var log bytes.Buffer

	tk := taskFor(server.URL+"/slide.svs", "slide.svs")
	written, err := f.FetchOne(ctx, tk, Options{Store: st, Log: &log})
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if written != int64(len(data)) {
		t.Errorf("written = %d, want %d", written, len(data))
	}

	got, err := os.ReadFile(filepath.Join(dir, "slide.svs"))
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("destination content mismatch")
	}
}

func TestHTTPFetchOneResumesPartial(t *testing.T) {
	ctx := context.Background()
	data := []byte("0123456789abcdefghij")
	server := rangeServer(data)
	defer server.Close()

	dir := t.TempDir()
	st, err := store.Open(ctx, dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	// Leave a partial file from an interrupted run.
	if err := os.WriteFile(filepath.Join(dir, "slide.svs"), data[:8], 0o644); err != nil {
		t.Fatalf("seed partial: %v", err)
	}

	f := NewHTTPFetcher(testClientOptions())
	var log bytes.Buffer

	written, err := f.FetchOne(ctx, taskFor(server.URL+"/slide.svs", "slide.svs"), Options{Store: st, Log: &log})
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if written != int64(len(data)-8) {
		t.Errorf("written = %d, want %d (resumed tail only)", written, len(data)-8)
	}

	got, err := os.ReadFile(filepath.Join(dir, "slide.svs"))
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("resumed content mismatch: %q", got)
	}
	if !bytes.Contains(log.Bytes(), []byte("Resuming")) {
		t.Errorf("expected resume notice in log, got %q", log.String())
	}
}

func TestHTTPFetchOneCompleteFileNotClobbered(t *testing.T) {
	ctx := context.Background()
	data := []byte("complete")
	server := rangeServer(data)
	defer server.Close()

	dir := t.TempDir()
	st, err := store.Open(ctx, dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	if err := os.WriteFile(filepath.Join(dir, "slide.svs"), data, 0o644); err != nil {
		t.Fatalf("seed complete file: %v", err)
	}

	f := NewHTTPFetcher(testClientOptions())
	var log bytes.Buffer

	// Server answers 416 for an at-end offset; nothing is transferred.
	written, err := f.FetchOne(ctx, taskFor(server.URL+"/slide.svs", "slide.svs"), Options{Store: st, Log: &log})
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}

	got, _ := os.ReadFile(filepath.Join(dir, "slide.svs"))
	if !bytes.Equal(got, data) {
		t.Errorf("complete file was modified")
	}
}

func TestHTTPFetchOneRemote(t *testing.T) {
	ctx := context.Background()
	data := []byte("remote destination bytes")
	server := rangeServer(data)
	defer server.Close()

	bucket, err := blob.OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()
	st := store.OpenBucket(bucket)

	f := NewHTTPFetcher(testClientOptions())
	var log bytes.Buffer

	written, err := f.FetchOne(ctx, taskFor(server.URL+"/slide.svs", "slide.svs"), Options{Store: st, Log: &log})
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if written != int64(len(data)) {
		t.Errorf("written = %d, want %d", written, len(data))
	}

	ok, _, err := st.Exists(ctx, "slide.svs", "")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("expected object in remote store")
	}
}

func TestHTTPFetchOneNotFound(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	st, err := store.Open(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	f := NewHTTPFetcher(testClientOptions())
	var log bytes.Buffer

	_, err = f.FetchOne(ctx, taskFor(server.URL+"/missing.svs", "missing.svs"), Options{Store: st, Log: &log})
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if ExitCode(err) != 1 {
		t.Errorf("exit code = %d, want 1", ExitCode(err))
	}
}
