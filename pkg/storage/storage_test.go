package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/expense-api/pkg/lifecycle"
	"github.com/JaimeStill/expense-api/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startSystem(t *testing.T, cfg *storage.Config) storage.System {
	t.Helper()

	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sys, err := storage.New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	lc.WaitForStartup()

	t.Cleanup(func() {
		if err := lc.Shutdown(5 * time.Second); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})
	return sys
}

// backends returns every backend that runs without external services.
func backends(t *testing.T) map[string]storage.System {
	return map[string]storage.System{
		"filesystem": startSystem(t, &storage.Config{
			Backend:    storage.BackendFilesystem,
			Filesystem: storage.FilesystemConfig{BasePath: t.TempDir()},
		}),
		"badger": startSystem(t, &storage.Config{
			Backend: storage.BackendBadger,
			Badger:  storage.BadgerConfig{InMemory: true, ChunkSize: "1KiB"},
		}),
	}
}

func put(t *testing.T, sys storage.System, filename string, content []byte) storage.Blob {
	t.Helper()

	blob, err := sys.Put(context.Background(), storage.PutInput{
		Filename:    filename,
		ContentType: "application/pdf",
		Size:        int64(len(content)),
		Body:        bytes.NewReader(content),
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	return blob
}

func collect(t *testing.T, sys storage.System, id string, chunkSize int) ([]byte, storage.Blob) {
	t.Helper()

	seq, blob, err := storage.Stream(context.Background(), sys, id, chunkSize)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	var out bytes.Buffer
	for chunk, err := range seq {
		if err != nil {
			t.Fatalf("chunk error = %v", err)
		}
		if len(chunk) > chunkSize {
			t.Fatalf("chunk length %d exceeds %d", len(chunk), chunkSize)
		}
		out.Write(chunk)
	}
	return out.Bytes(), blob
}

func TestRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 1023, 1024, 1025, 10*1024 + 17}

	for name, sys := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, size := range sizes {
				content := bytes.Repeat([]byte("r"), size)
				for i := range content {
					content[i] = byte(i % 251)
				}

				stored := put(t, sys, "receipt.pdf", content)
				if stored.Size != int64(size) {
					t.Errorf("Put() Size = %d, want %d", stored.Size, size)
				}
				if err := storage.ValidateID(stored.ID); err != nil {
					t.Errorf("Put() id %q invalid: %v", stored.ID, err)
				}

				got, blob := collect(t, sys, stored.ID, 300)
				if !bytes.Equal(got, content) {
					t.Errorf("size %d: streamed content differs from uploaded content", size)
				}
				if blob.Filename != "receipt.pdf" {
					t.Errorf("Filename = %q, want %q", blob.Filename, "receipt.pdf")
				}
				if blob.ContentType != "application/pdf" {
					t.Errorf("ContentType = %q, want %q", blob.ContentType, "application/pdf")
				}
			}
		})
	}
}

func TestPut_UniqueIDs(t *testing.T) {
	for name, sys := range backends(t) {
		t.Run(name, func(t *testing.T) {
			seen := make(map[string]bool)
			for range 10 {
				blob := put(t, sys, "a.txt", []byte("same"))
				if seen[blob.ID] {
					t.Fatalf("duplicate id %s", blob.ID)
				}
				seen[blob.ID] = true
			}
		})
	}
}

func TestPut_DefaultContentType(t *testing.T) {
	for name, sys := range backends(t) {
		t.Run(name, func(t *testing.T) {
			blob, err := sys.Put(context.Background(), storage.PutInput{
				Filename: "raw.bin",
				Body:     strings.NewReader("x"),
			})
			if err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if blob.ContentType != "application/octet-stream" {
				t.Errorf("ContentType = %q, want application/octet-stream", blob.ContentType)
			}
		})
	}
}

type failingReader struct {
	after int
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.after <= 0 {
		return 0, errors.New("connection reset")
	}
	n := min(len(p), r.after)
	r.after -= n
	return n, nil
}

func TestPut_FailureWrapsErrWrite(t *testing.T) {
	for name, sys := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := sys.Put(context.Background(), storage.PutInput{
				Filename: "broken.pdf",
				Body:     &failingReader{after: 2048},
			})
			if !errors.Is(err, storage.ErrWrite) {
				t.Fatalf("Put() error = %v, want ErrWrite", err)
			}

			count := 0
			sys.Walk(context.Background(), func(storage.Blob) error {
				count++
				return nil
			})
			if count != 0 {
				t.Errorf("Walk() found %d blobs after failed Put, want 0", count)
			}
		})
	}
}

func TestDelete_Idempotent(t *testing.T) {
	for name, sys := range backends(t) {
		t.Run(name, func(t *testing.T) {
			blob := put(t, sys, "gone.pdf", []byte("content"))

			for i := range 2 {
				if err := sys.Delete(context.Background(), blob.ID); err != nil {
					t.Fatalf("Delete() #%d error = %v", i+1, err)
				}
			}

			if _, err := sys.Stat(context.Background(), blob.ID); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Stat() after delete error = %v, want ErrNotFound", err)
			}
			if _, _, err := sys.Open(context.Background(), blob.ID); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Open() after delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDelete_NeverStored(t *testing.T) {
	for name, sys := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := sys.Delete(context.Background(), "3f1e2d4c-5b6a-4789-8abc-def012345678"); err != nil {
				t.Errorf("Delete() error = %v, want nil", err)
			}
		})
	}
}

func TestInvalidID(t *testing.T) {
	ids := []string{"", "abc", "../../etc/passwd", "3F1E2D4C-5B6A-4789-8ABC-DEF012345678"}

	for name, sys := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range ids {
				if _, err := sys.Stat(context.Background(), id); !errors.Is(err, storage.ErrInvalidID) {
					t.Errorf("Stat(%q) error = %v, want ErrInvalidID", id, err)
				}
				if err := sys.Delete(context.Background(), id); !errors.Is(err, storage.ErrInvalidID) {
					t.Errorf("Delete(%q) error = %v, want ErrInvalidID", id, err)
				}
				if _, _, err := sys.Open(context.Background(), id); !errors.Is(err, storage.ErrInvalidID) {
					t.Errorf("Open(%q) error = %v, want ErrInvalidID", id, err)
				}
			}
		})
	}
}

func TestWalk(t *testing.T) {
	for name, sys := range backends(t) {
		t.Run(name, func(t *testing.T) {
			want := map[string]string{}
			for _, fn := range []string{"a.pdf", "b.png", "c.txt"} {
				blob := put(t, sys, fn, []byte(fn))
				want[blob.ID] = fn
			}

			got := map[string]string{}
			err := sys.Walk(context.Background(), func(b storage.Blob) error {
				got[b.ID] = b.Filename
				return nil
			})
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}

			if len(got) != len(want) {
				t.Fatalf("Walk() visited %d blobs, want %d", len(got), len(want))
			}
			for id, fn := range want {
				if got[id] != fn {
					t.Errorf("Walk() %s filename = %q, want %q", id, got[id], fn)
				}
			}
		})
	}
}

func TestWalk_StopsOnError(t *testing.T) {
	stop := errors.New("stop")

	for name, sys := range backends(t) {
		t.Run(name, func(t *testing.T) {
			put(t, sys, "a", []byte("a"))
			put(t, sys, "b", []byte("b"))

			visits := 0
			err := sys.Walk(context.Background(), func(storage.Blob) error {
				visits++
				return stop
			})
			if !errors.Is(err, stop) {
				t.Errorf("Walk() error = %v, want %v", err, stop)
			}
			if visits != 1 {
				t.Errorf("visits = %d, want 1", visits)
			}
		})
	}
}

func TestCapabilities(t *testing.T) {
	sys := backends(t)

	if !sys["filesystem"].Capabilities().ConcurrentWrites {
		t.Error("filesystem ConcurrentWrites = false, want true")
	}
	if sys["badger"].Capabilities().ConcurrentWrites {
		t.Error("badger ConcurrentWrites = true, want false")
	}
	for name, s := range sys {
		if s.Capabilities().Links {
			t.Errorf("%s Links = true, want false", name)
		}
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	if _, err := storage.New(&storage.Config{Backend: "s3"}, testLogger()); err == nil {
		t.Error("New() error = nil, want error")
	}
}

func TestBadger_NotReadyBeforeStart(t *testing.T) {
	cfg := &storage.Config{Backend: storage.BackendBadger, Badger: storage.BadgerConfig{InMemory: true}}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sys, err := storage.New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = sys.Put(context.Background(), storage.PutInput{Filename: "a", Body: strings.NewReader("a")})
	if !errors.Is(err, storage.ErrNotReady) || !errors.Is(err, storage.ErrWrite) {
		t.Errorf("Put() error = %v, want ErrWrite wrapping ErrNotReady", err)
	}
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"receipt.pdf", "attachment; filename=receipt.pdf"},
		{"fuel receipt.pdf", `attachment; filename="fuel receipt.pdf"`},
	}

	for _, tt := range tests {
		if got := storage.ContentDisposition(tt.filename); got != tt.want {
			t.Errorf("ContentDisposition(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
