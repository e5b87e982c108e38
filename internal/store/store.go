package store

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/gcerrors"
)

// Store is the destination for downloaded artifacts. It wraps a blob
// bucket so the output directory can be a plain local path or any
// bucket URL supported by the registered gocloud drivers.
type Store struct {
	bucket   *blob.Bucket
	localDir string
	rawURL   string
}

// Open opens a destination store. A bare path (no scheme) or a file://
// URL is opened as a local directory, created if missing. Anything else
// is passed to the gocloud URL muxer, so s3:// and gs:// destinations
// work when their drivers are imported.
func Open(ctx context.Context, dest string) (*Store, error) {
	if dest == "" {
		return nil, fmt.Errorf("store: empty destination")
	}

	local := dest
	if strings.Contains(dest, "://") {
		u, err := url.Parse(dest)
		if err != nil {
			return nil, fmt.Errorf("store: parse destination %q: %w", dest, err)
		}
		if u.Scheme != "file" {
			bucket, err := blob.OpenBucket(ctx, dest)
			if err != nil {
				return nil, fmt.Errorf("store: open bucket %q: %w", dest, err)
			}
			return &Store{bucket: bucket, rawURL: dest}, nil
		}
		local = u.Path
	}

	abs, err := filepath.Abs(local)
	if err != nil {
		return nil, fmt.Errorf("store: resolve path %q: %w", local, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("store: create directory %q: %w", abs, err)
	}

	bucket, err := fileblob.OpenBucket(abs, &fileblob.Options{
		Metadata: fileblob.MetadataDontWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("store: open directory %q: %w", abs, err)
	}

	return &Store{bucket: bucket, localDir: abs, rawURL: dest}, nil
}

// Close releases the underlying bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// URL returns the destination as given to Open, for display.
func (s *Store) URL() string {
	return s.rawURL
}

// LocalDir returns the local directory backing the store, or "" when
// the destination is a remote bucket. Fetchers that shell out to
// external tools require a local destination.
func (s *Store) LocalDir() string {
	return s.localDir
}

// Exists reports whether a destination name is already satisfied. It
// checks the exact name and, when altSuffix is non-empty, the name with
// that suffix appended (some sources attach a format extension
// server-side). Returns the key that matched, if any. Read-only and
// safe for concurrent use.
func (s *Store) Exists(ctx context.Context, name, altSuffix string) (bool, string, error) {
	ok, err := s.bucket.Exists(ctx, name)
	if err != nil {
		return false, "", fmt.Errorf("store: stat %q: %w", name, err)
	}
	if ok {
		return true, name, nil
	}

	if altSuffix != "" {
		alt := name + altSuffix
		ok, err = s.bucket.Exists(ctx, alt)
		if err != nil {
			return false, "", fmt.Errorf("store: stat %q: %w", alt, err)
		}
		if ok {
			return true, alt, nil
		}
	}

	return false, "", nil
}

// Remove deletes a destination object. Missing objects are not an error.
func (s *Store) Remove(ctx context.Context, name string) error {
	err := s.bucket.Delete(ctx, name)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("store: remove %q: %w", name, err)
	}
	return nil
}

// NewWriter opens a writer for a destination object. The object is not
// visible until the writer is closed without error.
func (s *Store) NewWriter(ctx context.Context, name string) (io.WriteCloser, error) {
	w, err := s.bucket.NewWriter(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open writer %q: %w", name, err)
	}
	return w, nil
}

// OpenBucket wraps an already-open bucket, for tests.
func OpenBucket(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket, rawURL: "mem://"}
}
