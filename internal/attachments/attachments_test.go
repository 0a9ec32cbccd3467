package attachments_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/expense-api/internal/attachments"
	"github.com/JaimeStill/expense-api/pkg/lifecycle"
	"github.com/JaimeStill/expense-api/pkg/storage"
	"github.com/panjf2000/ants/v2"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) storage.System {
	t.Helper()

	cfg := &storage.Config{Filesystem: storage.FilesystemConfig{BasePath: t.TempDir()}}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sys, err := storage.New(cfg, testLogger())
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	lc.WaitForStartup()
	t.Cleanup(func() { lc.Shutdown(time.Second) })

	return sys
}

func newPool(t *testing.T) *ants.Pool {
	t.Helper()

	pool, err := ants.NewPool(4)
	if err != nil {
		t.Fatalf("ants.NewPool() error = %v", err)
	}
	t.Cleanup(pool.Release)
	return pool
}

// flakyStore fails Put for the listed filenames.
type flakyStore struct {
	storage.System
	failOn map[string]bool

	mu   sync.Mutex
	puts int
}

func (s *flakyStore) Put(ctx context.Context, in storage.PutInput) (storage.Blob, error) {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()

	if s.failOn[in.Filename] {
		return storage.Blob{}, fmt.Errorf("%w: quota exceeded", storage.ErrWrite)
	}
	return s.System.Put(ctx, in)
}

func countBlobs(t *testing.T, store storage.System) int {
	t.Helper()

	n := 0
	if err := store.Walk(context.Background(), func(storage.Blob) error {
		n++
		return nil
	}); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	return n
}

func putBlob(t *testing.T, store storage.System, filename, content string) storage.Blob {
	t.Helper()

	blob, err := store.Put(context.Background(), storage.PutInput{
		Filename:    filename,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Body:        bytes.NewReader([]byte(content)),
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	return blob
}

func textUpload(name, content string) attachments.Upload {
	return attachments.Upload{
		Filename:    name,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Body:        bytes.NewReader([]byte(content)),
	}
}
