// Package storage provides the blob store used for expense attachments.
// A System stores opaque binary content under backend-assigned ids and
// is implemented by a local filesystem backend, an embedded chunked
// badger backend, and a Google Cloud Storage backend.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"time"

	"github.com/JaimeStill/expense-api/pkg/lifecycle"
)

// Blob describes stored content. Links are empty when the backend has no durable URLs.
type Blob struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
	ViewLink     string    `json:"viewLink,omitempty"`
	DownloadLink string    `json:"downloadLink,omitempty"`
}

// PutInput is the content and metadata for a new blob.
// Size may be -1 when unknown.
type PutInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Capabilities reports backend features that callers adapt to.
type Capabilities struct {
	// ConcurrentWrites is true when Put may be called from several goroutines at once.
	ConcurrentWrites bool
	// Links is true when blobs carry view and download links.
	Links bool
}

// System defines blob storage operations.
type System interface {
	// Put stores a new blob and returns its metadata with a freshly assigned id.
	// Every failure wraps ErrWrite.
	Put(ctx context.Context, in PutInput) (Blob, error)

	// Stat returns blob metadata. Returns ErrNotFound if the id is unknown.
	Stat(ctx context.Context, id string) (Blob, error)

	// Open returns a reader over the blob content. The caller closes it.
	Open(ctx context.Context, id string) (io.ReadCloser, Blob, error)

	// Delete removes a blob. Deleting an absent blob succeeds.
	Delete(ctx context.Context, id string) error

	// Walk calls fn for every stored blob until fn returns an error.
	Walk(ctx context.Context, fn func(Blob) error) error

	Capabilities() Capabilities

	// Start registers lifecycle hooks with the coordinator.
	Start(lc *lifecycle.Coordinator) error
}

// New constructs the backend selected by cfg.Backend.
// Connections and directories are opened in Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "storage", "backend", cfg.Backend)

	switch cfg.Backend {
	case BackendFilesystem, "":
		return newFilesystem(&cfg.Filesystem, logger)
	case BackendBadger:
		return newBadger(&cfg.Badger, logger)
	case BackendGCS:
		return newGCS(&cfg.GCS, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ContentTypeOrDefault returns ct, or application/octet-stream when ct is empty.
func ContentTypeOrDefault(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

// ContentDisposition formats an attachment disposition header for filename.
func ContentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
