package output

import (
	"context"
	"fmt"

	pkgerrors "github.com/glorpus-work/bulkget/pkg/errors"
	"gocloud.dev/blob"
	// Drivers for the bucket schemes accepted by Open.
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// BucketWriter writes files as objects in a gocloud blob bucket.
type BucketWriter struct {
	bucket *blob.Bucket
}

// NewBucketWriter wraps an open bucket. Objects are keyed by file name; the
// writer owns the bucket and closes it in Close.
func NewBucketWriter(bucket *blob.Bucket) *BucketWriter {
	return &BucketWriter{bucket: bucket}
}

// Prepare checks that the bucket exists and is reachable with the current credentials.
func (w *BucketWriter) Prepare(ctx context.Context) error {
	ok, err := w.bucket.IsAccessible(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", pkgerrors.ErrDirectory, err)
	}
	if !ok {
		return fmt.Errorf("%w: bucket is not accessible", pkgerrors.ErrDirectory)
	}
	return nil
}

// Write uploads data to the object name, replacing an existing object.
func (w *BucketWriter) Write(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := w.bucket.WriteAll(ctx, name, data, nil); err != nil {
		return fmt.Errorf("%w %s: %w", pkgerrors.ErrWrite, name, err)
	}
	return nil
}

// Close closes the underlying bucket.
func (w *BucketWriter) Close() error {
	return w.bucket.Close()
}
