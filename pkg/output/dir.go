package output

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	applog "github.com/glorpus-work/bulkget/internal/logger"
	"github.com/glorpus-work/bulkget/pkg/archive"
	pkgerrors "github.com/glorpus-work/bulkget/pkg/errors"
	"github.com/glorpus-work/bulkget/pkg/fsutil"
)

// DirWriter writes files into a single flat directory.
type DirWriter struct {
	Dir      string
	Extract  bool
	archives *archive.Manager
	logger   *slog.Logger
}

// NewDirWriter creates a DirWriter. With extract set, archives are unpacked
// after writing; failures to unpack are logged and otherwise ignored.
func NewDirWriter(dir string, extract bool, logger *slog.Logger) *DirWriter {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DirWriter{
		Dir:      dir,
		Extract:  extract,
		archives: archive.NewManager(),
		logger:   logger,
	}
}

// Prepare creates the directory and its parents. An existing directory is fine.
func (w *DirWriter) Prepare(_ context.Context) error {
	if err := fsutil.EnsureDir(w.Dir); err != nil {
		return fmt.Errorf("%w: %w", pkgerrors.ErrDirectory, err)
	}
	return nil
}

// Write replaces <Dir>/<name> atomically.
func (w *DirWriter) Write(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}

	path := filepath.Join(w.Dir, name)
	if err := fsutil.WriteFileAtomic(path, data, fsutil.FileModeDefault); err != nil {
		return fmt.Errorf("%w %s: %w", pkgerrors.ErrWrite, path, err)
	}

	if w.Extract {
		w.extract(ctx, path, name, data)
	}
	return nil
}

func (w *DirWriter) extract(ctx context.Context, path, name string, data []byte) {
	ok, err := w.archives.IsArchive(ctx, name, data)
	if err != nil {
		w.logger.Warn("failed to identify archive", "file", path, "error", err)
		return
	}
	if !ok {
		return
	}

	dest := archive.DestDir(path)
	if err := w.archives.ExtractAll(ctx, path, dest); err != nil {
		w.logger.Warn("failed to extract archive", "file", path, "dest", dest, "error", err)
		return
	}
	w.logger.Debug("extracted archive", "file", path, "dest", dest)
}

// Close is a no-op.
func (w *DirWriter) Close() error { return nil }
