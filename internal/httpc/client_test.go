package httpc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func testOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 10,
		Timeout:             5 * time.Second,
		RetryAttempts:       2,
		RetryBackoff:        10 * time.Millisecond,
		RetryMaxBackoff:     50 * time.Millisecond,
	}
}

func TestHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Content-Disposition", `attachment; filename="GTEX-1117F-0126.svs"`)
	}))
	defer server.Close()

	client := NewClient(testOptions())
	info, err := client.Head(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}

	if info.Size != 1000 {
		t.Errorf("size = %d, want 1000", info.Size)
	}
	if !info.AcceptsRanges {
		t.Error("expected AcceptsRanges true")
	}
	if info.ETag != "abc123" {
		t.Errorf("etag = %q, want abc123", info.ETag)
	}
	if info.Filename != "GTEX-1117F-0126.svs" {
		t.Errorf("filename = %q, want GTEX-1117F-0126.svs", info.Filename)
	}
}

func TestGetFromResume(t *testing.T) {
	data := []byte("0123456789abcdef")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" {
			w.Write(data)
			return
		}
		var start int64
		fmt.Sscanf(rangeHeader, "bytes=%d-", &start)
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, len(data)-1, len(data)))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)-int(start)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(data[start:])
	}))
	defer server.Close()

	client := NewClient(testOptions())
	resp, err := client.GetFrom(context.Background(), server.URL, 10)
	if err != nil {
		t.Fatalf("GetFrom: %v", err)
	}
	defer resp.Body.Close()

	if !resp.Resumed {
		t.Error("expected Resumed true for 206 response")
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "abcdef" {
		t.Errorf("body = %q, want abcdef", body)
	}
}

func TestGetFromServerIgnoresRange(t *testing.T) {
	data := []byte("full content")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Range header ignored; plain 200 with the whole file.
		w.Write(data)
	}))
	defer server.Close()

	client := NewClient(testOptions())
	resp, err := client.GetFrom(context.Background(), server.URL, 5)
	if err != nil {
		t.Fatalf("GetFrom: %v", err)
	}
	defer resp.Body.Close()

	if resp.Resumed {
		t.Error("expected Resumed false for 200 response")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != string(data) {
		t.Errorf("body = %q, want full content", body)
	}
}

func TestGetFromRangeNotSatisfiable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
	}))
	defer server.Close()

	client := NewClient(testOptions())
	resp, err := client.GetFrom(context.Background(), server.URL, 100)
	if err != nil {
		t.Fatalf("GetFrom: %v", err)
	}
	defer resp.Body.Close()

	if !resp.Resumed {
		t.Error("expected Resumed true for 416")
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 0 {
		t.Errorf("expected empty body, got %q", body)
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(testOptions())
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get after retries: %v", err)
	}
	defer resp.Body.Close()

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestGetNotFoundIsNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testOptions())
	_, err := client.Get(context.Background(), server.URL)
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "ids") {
			t.Errorf("unexpected request body: %q", body)
		}
		w.Header().Set("Content-Disposition", `attachment; filename="gdc_download_20250830.tar.gz"`)
		w.Write([]byte("archive bytes"))
	}))
	defer server.Close()

	client := NewClient(testOptions())
	resp, err := client.Post(context.Background(), server.URL, "application/json", []byte(`{"ids":["a","b"]}`))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	if resp.Filename != "gdc_download_20250830.tar.gz" {
		t.Errorf("filename = %q", resp.Filename)
	}
}

func TestDispositionFilenameStripsPath(t *testing.T) {
	got := dispositionFilename(`attachment; filename="../../etc/passwd"`)
	if got != "passwd" {
		t.Errorf("expected path stripped, got %q", got)
	}
}
