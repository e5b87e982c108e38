package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"
)

func TestOpenLocalCreatesDirectory(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "downloads")

	st, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if st.LocalDir() == "" {
		t.Error("expected local dir for plain path destination")
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat created dir: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected destination to be a directory")
	}
}

func TestExistsChecksAltSuffix(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if err := os.WriteFile(filepath.Join(dir, "GTEX-1234.svs"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	ok, matched, err := st.Exists(ctx, "GTEX-1234", ".svs")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Fatal("expected match via alt suffix")
	}
	if matched != "GTEX-1234.svs" {
		t.Errorf("expected matched key GTEX-1234.svs, got %q", matched)
	}

	ok, _, err = st.Exists(ctx, "GTEX-1234", "")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("expected no match without alt suffix")
	}
}

func TestExistsExactName(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if err := os.WriteFile(filepath.Join(dir, "slide.tiff"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	ok, matched, err := st.Exists(ctx, "slide.tiff", ".svs")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok || matched != "slide.tiff" {
		t.Errorf("expected exact match, got ok=%v matched=%q", ok, matched)
	}
}

func TestRemoveMissingIsNoError(t *testing.T) {
	ctx := context.Background()

	bucket, err := blob.OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()

	st := OpenBucket(bucket)
	if err := st.Remove(ctx, "never-written"); err != nil {
		t.Errorf("Remove of missing object: %v", err)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	w, err := st.NewWriter(ctx, "sample.svs")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write([]byte("slide bytes")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "sample.svs"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "slide bytes" {
		t.Errorf("unexpected content: %q", data)
	}

	ok, _, err := st.Exists(ctx, "sample.svs", "")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("expected written object to exist")
	}
}
