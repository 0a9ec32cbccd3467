package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/JaimeStill/expense-api/pkg/lifecycle"
)

const (
	fsContentFile = "content"
	fsMetaFile    = "meta.json"
)

// filesystem stores each blob as <base>/<id[:2]>/<id>/{content,meta.json}.
// meta.json is renamed into place last, so a blob without it does not exist.
type filesystem struct {
	basePath string
	logger   *slog.Logger
}

func newFilesystem(cfg *FilesystemConfig, logger *slog.Logger) (*filesystem, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("base_path required")
	}

	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base_path: %w", err)
	}

	return &filesystem{
		basePath: absPath,
		logger:   logger,
	}, nil
}

func (f *filesystem) Start(lc *lifecycle.Coordinator) error {
	f.logger.Info("starting storage system", "base_path", f.basePath)

	lc.OnStartup(func() {
		if err := os.MkdirAll(f.basePath, 0755); err != nil {
			f.logger.Error("storage initialization failed", "error", err)
			return
		}
		f.logger.Info("storage directory initialized")
	})

	return nil
}

func (f *filesystem) Capabilities() Capabilities {
	return Capabilities{ConcurrentWrites: true}
}

func (f *filesystem) Put(ctx context.Context, in PutInput) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return Blob{}, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	id := newID()
	dir := f.blobDir(id)

	blob, err := f.write(dir, id, in)
	if err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			f.logger.Warn("failed to clean up partial blob", "id", id, "error", rmErr)
		}
		return Blob{}, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return blob, nil
}

func (f *filesystem) write(dir, id string, in PutInput) (Blob, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Blob{}, fmt.Errorf("create directory: %w", err)
	}

	size, err := writeAtomic(filepath.Join(dir, fsContentFile), func(w io.Writer) (int64, error) {
		return io.Copy(w, in.Body)
	})
	if err != nil {
		return Blob{}, fmt.Errorf("write content: %w", err)
	}

	blob := Blob{
		ID:          id,
		Filename:    in.Filename,
		ContentType: ContentTypeOrDefault(in.ContentType),
		Size:        size,
		CreatedAt:   time.Now().UTC(),
	}

	meta, err := json.Marshal(blob)
	if err != nil {
		return Blob{}, fmt.Errorf("encode metadata: %w", err)
	}

	if _, err := writeAtomic(filepath.Join(dir, fsMetaFile), func(w io.Writer) (int64, error) {
		n, err := w.Write(meta)
		return int64(n), err
	}); err != nil {
		return Blob{}, fmt.Errorf("write metadata: %w", err)
	}

	return blob, nil
}

func (f *filesystem) Stat(ctx context.Context, id string) (Blob, error) {
	if err := ValidateID(id); err != nil {
		return Blob{}, err
	}
	return f.readMeta(f.blobDir(id))
}

func (f *filesystem) Open(ctx context.Context, id string) (io.ReadCloser, Blob, error) {
	blob, err := f.Stat(ctx, id)
	if err != nil {
		return nil, Blob{}, err
	}

	file, err := os.Open(filepath.Join(f.blobDir(id), fsContentFile))
	if err != nil {
		return nil, Blob{}, mapFSError(err, "open content")
	}
	return file, blob, nil
}

func (f *filesystem) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	dir := f.blobDir(id)
	if err := os.RemoveAll(dir); err != nil {
		return mapFSError(err, "remove blob")
	}

	prefix := filepath.Dir(dir)
	entries, err := os.ReadDir(prefix)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("failed to read directory for cleanup", "dir", prefix, "error", err)
		}
		return nil
	}

	if len(entries) == 0 {
		if err := os.Remove(prefix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("failed to remove empty directory", "dir", prefix, "error", err)
		}
	}

	return nil
}

func (f *filesystem) Walk(ctx context.Context, fn func(Blob) error) error {
	prefixes, err := os.ReadDir(f.basePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read base path: %w", err)
	}

	for _, prefix := range prefixes {
		if !prefix.IsDir() {
			continue
		}

		entries, err := os.ReadDir(filepath.Join(f.basePath, prefix.Name()))
		if err != nil {
			return fmt.Errorf("read prefix %s: %w", prefix.Name(), err)
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !entry.IsDir() || ValidateID(entry.Name()) != nil {
				continue
			}

			blob, err := f.readMeta(f.blobDir(entry.Name()))
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := fn(blob); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *filesystem) blobDir(id string) string {
	return filepath.Join(f.basePath, id[:2], id)
}

func (f *filesystem) readMeta(dir string) (Blob, error) {
	data, err := os.ReadFile(filepath.Join(dir, fsMetaFile))
	if err != nil {
		return Blob{}, mapFSError(err, "read metadata")
	}

	var blob Blob
	if err := json.Unmarshal(data, &blob); err != nil {
		return Blob{}, fmt.Errorf("decode metadata: %w", err)
	}
	return blob, nil
}

// writeAtomic writes to a temp file beside path and renames it into place.
func writeAtomic(path string, write func(io.Writer) (int64, error)) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()

	n, err := write(tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	return n, nil
}

func mapFSError(err error, op string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
