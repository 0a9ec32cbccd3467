package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	gcs "cloud.google.com/go/storage"
	"github.com/JaimeStill/expense-api/pkg/lifecycle"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const gcsFilenameKey = "filename"

// gcsStore keeps each blob as the object <prefix><id> with the original
// filename in object metadata. The client owns credential refresh and is
// created at startup and closed at shutdown.
type gcsStore struct {
	cfg    GCSConfig
	client atomic.Pointer[gcs.Client]
	logger *slog.Logger
}

func newGCS(cfg *GCSConfig, logger *slog.Logger) (*gcsStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	return &gcsStore{
		cfg:    *cfg,
		logger: logger,
	}, nil
}

func (g *gcsStore) Start(lc *lifecycle.Coordinator) error {
	g.logger.Info("starting storage system", "bucket", g.cfg.Bucket, "prefix", g.cfg.Prefix)

	lc.OnStartup(func() {
		client, err := gcs.NewClient(lc.Context(), g.clientOptions()...)
		if err != nil {
			g.logger.Error("storage client initialization failed", "error", err)
			return
		}
		g.client.Store(client)
		g.logger.Info("storage client initialized")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		client := g.client.Swap(nil)
		if client == nil {
			return
		}
		if err := client.Close(); err != nil {
			g.logger.Error("storage client close failed", "error", err)
			return
		}
		g.logger.Info("storage client closed")
	})

	return nil
}

func (g *gcsStore) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if g.cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(g.cfg.CredentialsFile))
	}
	if g.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.cfg.Endpoint))
	}
	return opts
}

func (g *gcsStore) Capabilities() Capabilities {
	return Capabilities{ConcurrentWrites: true, Links: true}
}

func (g *gcsStore) bucket() (*gcs.BucketHandle, error) {
	client := g.client.Load()
	if client == nil {
		return nil, ErrNotReady
	}
	return client.Bucket(g.cfg.Bucket), nil
}

func (g *gcsStore) object(id string) (*gcs.ObjectHandle, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	bucket, err := g.bucket()
	if err != nil {
		return nil, err
	}
	return bucket.Object(g.cfg.Prefix + id), nil
}

func (g *gcsStore) Put(ctx context.Context, in PutInput) (Blob, error) {
	id := newID()

	obj, err := g.object(id)
	if err != nil {
		return Blob{}, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	w := obj.If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = ContentTypeOrDefault(in.ContentType)
	w.ContentDisposition = ContentDisposition(in.Filename)
	w.Metadata = map[string]string{gcsFilenameKey: in.Filename}

	if _, err := io.Copy(w, in.Body); err != nil {
		w.Close()
		return Blob{}, fmt.Errorf("%w: copy content: %w", ErrWrite, err)
	}
	if err := w.Close(); err != nil {
		return Blob{}, fmt.Errorf("%w: finalize object: %w", ErrWrite, err)
	}

	return g.toBlob(id, w.Attrs()), nil
}

func (g *gcsStore) Stat(ctx context.Context, id string) (Blob, error) {
	obj, err := g.object(id)
	if err != nil {
		return Blob{}, err
	}

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return Blob{}, mapGCSError(err, "read attributes")
	}
	return g.toBlob(id, attrs), nil
}

func (g *gcsStore) Open(ctx context.Context, id string) (io.ReadCloser, Blob, error) {
	blob, err := g.Stat(ctx, id)
	if err != nil {
		return nil, Blob{}, err
	}

	obj, err := g.object(id)
	if err != nil {
		return nil, Blob{}, err
	}

	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, Blob{}, mapGCSError(err, "open object")
	}
	return r, blob, nil
}

// Delete treats a missing object as success. Any other failure is
// re-checked with Attrs, since the delete may have been applied even
// though the response was lost.
func (g *gcsStore) Delete(ctx context.Context, id string) error {
	obj, err := g.object(id)
	if err != nil {
		return err
	}

	err = obj.Delete(ctx)
	if err == nil || isGCSNotFound(err) {
		return nil
	}

	if _, statErr := obj.Attrs(ctx); isGCSNotFound(statErr) {
		g.logger.Debug("delete resolved by existence check", "id", id, "error", err)
		return nil
	}
	return mapGCSError(err, "delete object")
}

func (g *gcsStore) Walk(ctx context.Context, fn func(Blob) error) error {
	bucket, err := g.bucket()
	if err != nil {
		return err
	}

	it := bucket.Objects(ctx, &gcs.Query{Prefix: g.cfg.Prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return mapGCSError(err, "list objects")
		}

		id := strings.TrimPrefix(attrs.Name, g.cfg.Prefix)
		if ValidateID(id) != nil {
			continue
		}
		if err := fn(g.toBlob(id, attrs)); err != nil {
			return err
		}
	}
}

func (g *gcsStore) toBlob(id string, attrs *gcs.ObjectAttrs) Blob {
	blob := Blob{ID: id}
	if attrs == nil {
		return blob
	}

	blob.Filename = attrs.Metadata[gcsFilenameKey]
	blob.ContentType = attrs.ContentType
	blob.Size = attrs.Size
	blob.CreatedAt = attrs.Created
	blob.ViewLink = fmt.Sprintf("https://storage.cloud.google.com/%s/%s",
		url.PathEscape(attrs.Bucket), url.PathEscape(attrs.Name))
	blob.DownloadLink = attrs.MediaLink
	return blob
}

func isGCSNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

func mapGCSError(err error, op string) error {
	if isGCSNotFound(err) {
		return ErrNotFound
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusForbidden {
		return ErrPermissionDenied
	}
	return fmt.Errorf("%s: %w", op, err)
}
