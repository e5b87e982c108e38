//go:build integration

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "gocloud.dev/blob/s3blob"

	"github.com/slidefetch/slidefetch/internal/testutils"
)

func TestCLIIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	images := []testutils.TestImage{
		{Name: "GTEX-AAAA-0526", Size: 512 * 1024},
		{Name: "GTEX-BBBB-0326", Size: 256 * 1024},
		{Name: "GTEX-CCCC-1126", Size: 128 * 1024},
	}
	for i := range images {
		images[i].Data = testutils.GenerateTestData(t, images[i].Size)
	}

	t.Log("Starting image test server...")
	server := testutils.StartImageServer(t, images)
	defer server.Close()

	workDir := t.TempDir()
	outDir := filepath.Join(workDir, "wsi")
	logDir := filepath.Join(workDir, "logs")
	urlFile := filepath.Join(workDir, "urls.txt")
	testutils.WriteURLList(t, urlFile, server.URL, images)

	t.Run("fetch", func(t *testing.T) {
		exitCode := runFetch([]string{
			"-urlfile", urlFile,
			"-outdir", outDir,
			"-logdir", logDir,
			"-concurrency", "2",
		})
		if exitCode != ExitSuccess {
			t.Fatalf("fetch failed with exit code %d", exitCode)
		}

		for _, img := range images {
			data, err := os.ReadFile(filepath.Join(outDir, img.Name))
			if err != nil {
				t.Fatalf("read %s: %v", img.Name, err)
			}
			if !bytes.Equal(data, img.Data) {
				t.Errorf("%s content mismatch", img.Name)
			}
		}
	})

	t.Run("fetch again skips everything", func(t *testing.T) {
		exitCode := runFetch([]string{
			"-urlfile", urlFile,
			"-outdir", outDir,
			"-logdir", logDir,
		})
		if exitCode != ExitSuccess {
			t.Fatalf("rerun failed with exit code %d", exitCode)
		}
	})

	t.Run("dry run", func(t *testing.T) {
		exitCode := runFetch([]string{
			"-urlfile", urlFile,
			"-outdir", filepath.Join(workDir, "fresh"),
			"-dry-run",
		})
		if exitCode != ExitSuccess {
			t.Fatalf("dry run failed with exit code %d", exitCode)
		}
	})
}

func TestCLIBucketDestination(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	images := []testutils.TestImage{
		{Name: "GTEX-DDDD-0726", Size: 512 * 1024},
	}
	images[0].Data = testutils.GenerateTestData(t, images[0].Size)

	t.Log("Starting image test server...")
	server := testutils.StartImageServer(t, images)
	defer server.Close()

	t.Log("Starting Minio container...")
	minio := testutils.StartMinioContainer(t, ctx, "wsi-test-bucket")
	defer func() {
		if err := minio.Close(ctx); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	}()

	workDir := t.TempDir()
	urlFile := filepath.Join(workDir, "urls.txt")
	testutils.WriteURLList(t, urlFile, server.URL, images)

	exitCode := runFetch([]string{
		"-urlfile", urlFile,
		"-outdir", minio.BucketURL,
		"-logdir", filepath.Join(workDir, "logs"),
	})
	if exitCode != ExitSuccess {
		t.Fatalf("fetch to bucket failed with exit code %d", exitCode)
	}

	bucket, err := minio.OpenBucket(ctx)
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()

	r, err := bucket.NewReader(ctx, images[0].Name, nil)
	if err != nil {
		t.Fatalf("open object: %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if !bytes.Equal(data, images[0].Data) {
		t.Error("bucket object content mismatch")
	}
}
