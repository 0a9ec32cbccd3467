package attachments

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JaimeStill/expense-api/pkg/storage"
	"golang.org/x/sync/errgroup"
)

// Resolver turns stored references into display descriptors.
type Resolver struct {
	store  storage.System
	logger *slog.Logger
}

func NewResolver(store storage.System, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger.With("system", "attachments"),
	}
}

const resolveLimit = 8

// Resolve returns one descriptor per reference, in order. Every reference
// is checked against the blob store. A descriptor whose blob is gone
// becomes UnknownFilename with no links; any other lookup failure keeps the
// stored descriptor. Bare ids that cannot be read yield UnknownFilename.
func (r *Resolver) Resolve(ctx context.Context, refs List) []Descriptor {
	out := make([]Descriptor, len(refs))

	var g errgroup.Group
	g.SetLimit(resolveLimit)
	for i, ref := range refs {
		g.Go(func() error {
			if d, ok := ref.Descriptor(); ok {
				out[i] = r.check(ctx, d)
			} else {
				out[i] = r.lookup(ctx, ref.ID(), UnknownFilename)
			}
			return nil
		})
	}
	g.Wait()
	return out
}

func (r *Resolver) check(ctx context.Context, d Descriptor) Descriptor {
	_, err := r.store.Stat(ctx, d.ID)
	switch {
	case err == nil:
		return d
	case errors.Is(err, storage.ErrNotFound):
		r.logger.Warn("attachment blob missing", "id", d.ID)
		return Descriptor{ID: d.ID, Filename: UnknownFilename}
	default:
		r.logger.Warn("attachment metadata unavailable", "id", d.ID, "error", err)
		return d
	}
}

// Normalize converts bare references to descriptors before they are
// persisted again. The blob's filename is used when available and
// LegacyFilename otherwise.
func (r *Resolver) Normalize(ctx context.Context, refs List) List {
	out := make(List, len(refs))
	for i, ref := range refs {
		if !ref.IsBare() {
			out[i] = ref
			continue
		}
		out[i] = DescriptorRef(r.lookup(ctx, ref.ID(), LegacyFilename))
	}
	return out
}

func (r *Resolver) lookup(ctx context.Context, id, placeholder string) Descriptor {
	blob, err := r.store.Stat(ctx, id)
	if err != nil {
		r.logger.Warn("attachment metadata unavailable", "id", id, "error", err)
		return Descriptor{ID: id, Filename: placeholder}
	}

	filename := blob.Filename
	if filename == "" {
		filename = placeholder
	}
	return Descriptor{
		ID:           id,
		Filename:     filename,
		ContentType:  blob.ContentType,
		Size:         blob.Size,
		ViewLink:     blob.ViewLink,
		DownloadLink: blob.DownloadLink,
	}
}
