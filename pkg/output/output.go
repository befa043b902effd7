// Package output stores downloaded files in a local directory or an object
// storage bucket.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	applog "github.com/glorpus-work/bulkget/internal/logger"
	pkgerrors "github.com/glorpus-work/bulkget/pkg/errors"
	"gocloud.dev/blob"
)

// Writer is a flat destination for downloaded files.
type Writer interface {
	// Prepare makes the destination ready. It is called once, before any Write.
	Prepare(ctx context.Context) error
	// Write stores data under name, replacing an existing entry.
	Write(ctx context.Context, name string, data []byte) error
	io.Closer
}

// Options configure Open.
type Options struct {
	// Extract unpacks archives after writing. Directory destinations only.
	Extract bool
	Logger  *slog.Logger
}

// IsBucketURL reports whether dest names a bucket rather than a directory.
// Only schemes with a registered gocloud driver count.
func IsBucketURL(dest string) bool {
	u, err := url.Parse(dest)
	if err != nil || u.Scheme == "" {
		return false
	}
	return blob.DefaultURLMux().ValidBucketScheme(u.Scheme)
}

// Open returns the writer for dest: a BucketWriter for s3://, gs:// or
// mem:// URLs and a DirWriter for anything else. A bucket URL may carry a
// prefix query parameter (s3://bucket?prefix=run/) to place objects under
// a common key prefix.
func Open(ctx context.Context, dest string, opts Options) (Writer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}

	if !IsBucketURL(dest) {
		return NewDirWriter(dest, opts.Extract, logger), nil
	}

	if opts.Extract {
		logger.Warn("archive extraction is only supported for directory destinations", "output", dest)
	}
	bucket, err := blob.OpenBucket(ctx, dest)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open bucket %s: %w", pkgerrors.ErrDirectory, dest, err)
	}
	return NewBucketWriter(bucket), nil
}

// validName rejects names that are empty or would leave the destination.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.IsAbs(name) {
		return fmt.Errorf("%w: %q is not a plain file name", pkgerrors.ErrInvalidPath, name)
	}
	return nil
}
