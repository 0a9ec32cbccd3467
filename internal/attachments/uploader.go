package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/JaimeStill/expense-api/pkg/storage"
	"github.com/panjf2000/ants/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Policy decides what happens when some uploads in a batch fail.
type Policy string

const (
	// PolicyBestEffort keeps successful uploads and drops failures. The
	// request never fails on upload errors, even when every file fails.
	PolicyBestEffort Policy = "best_effort"
	// PolicyStrict makes a batch all-or-nothing: when any upload fails the
	// successful ones are deleted and the request fails with ErrWrite.
	PolicyStrict Policy = "strict"
)

// Validate reports an error for unknown policies.
func (p Policy) Validate() error {
	switch p {
	case PolicyBestEffort, PolicyStrict:
		return nil
	default:
		return fmt.Errorf("invalid upload policy %q: must be best_effort or strict", p)
	}
}

// Upload is one file from a multipart request.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// OpenUploads opens every file header. The returned close function
// releases all opened files and must be called once uploading is done.
func OpenUploads(headers []*multipart.FileHeader) ([]Upload, func(), error) {
	uploads := make([]Upload, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))

	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open %s: %w", h.Filename, err)
		}
		files = append(files, f)

		uploads = append(uploads, Upload{
			Filename:    h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Size:        h.Size,
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}

// Uploader writes upload batches to the blob store and returns their references.
type Uploader struct {
	store  storage.System
	pool   *ants.Pool
	policy Policy
	logger *slog.Logger
}

// NewUploader creates an Uploader. Uploads run on pool when the store
// accepts concurrent writes; a nil pool always uploads sequentially.
func NewUploader(store storage.System, pool *ants.Pool, policy Policy, logger *slog.Logger) *Uploader {
	if policy == "" {
		policy = PolicyBestEffort
	}
	return &Uploader{
		store:  store,
		pool:   pool,
		policy: policy,
		logger: logger.With("system", "attachments"),
	}
}

// Policy returns the configured batch policy.
func (u *Uploader) Policy() Policy {
	return u.policy
}

type uploadResult struct {
	ref Ref
	err error
}

// Upload stores every file and returns references in upload order.
// Under PolicyBestEffort failed files are logged and omitted. Under
// PolicyStrict any failure removes the blobs already written and
// returns an error wrapping storage.ErrWrite.
func (u *Uploader) Upload(ctx context.Context, files []Upload) (List, error) {
	if len(files) == 0 {
		return List{}, nil
	}

	results := make([]uploadResult, len(files))

	if u.pool != nil && u.store.Capabilities().ConcurrentWrites && len(files) > 1 {
		var wg sync.WaitGroup
		for i := range files {
			wg.Add(1)
			err := u.pool.Submit(func() {
				defer wg.Done()
				results[i] = u.put(ctx, files[i])
			})
			if err != nil {
				wg.Done()
				results[i] = uploadResult{err: fmt.Errorf("%w: submit upload: %w", storage.ErrWrite, err)}
			}
		}
		wg.Wait()
	} else {
		for i := range files {
			results[i] = u.put(ctx, files[i])
		}
	}

	refs := make(List, 0, len(files))
	var errs []error
	for i, res := range results {
		if res.err != nil {
			u.logger.Error("attachment upload failed", "filename", files[i].Filename, "error", res.err)
			errs = append(errs, res.err)
			continue
		}
		refs = append(refs, res.ref)
	}

	if len(errs) > 0 && u.policy == PolicyStrict {
		u.Discard(context.WithoutCancel(ctx), refs)
		return nil, fmt.Errorf("%w: %d of %d uploads failed: %w",
			storage.ErrWrite, len(errs), len(files), errors.Join(errs...))
	}

	if len(errs) > 0 {
		u.logger.Warn("upload batch partially failed",
			"uploaded", len(refs), "failed", len(errs))
	}
	return refs, nil
}

func (u *Uploader) put(ctx context.Context, f Upload) uploadResult {
	contentType := detectContentType(f)
	pageCount := u.pageCount(f, contentType)

	if _, err := f.Body.Seek(0, io.SeekStart); err != nil {
		return uploadResult{err: fmt.Errorf("%w: rewind %s: %w", storage.ErrWrite, f.Filename, err)}
	}

	blob, err := u.store.Put(ctx, storage.PutInput{
		Filename:    f.Filename,
		ContentType: contentType,
		Size:        f.Size,
		Body:        f.Body,
	})
	if err != nil {
		return uploadResult{err: err}
	}

	u.logger.Debug("attachment uploaded", "id", blob.ID, "filename", blob.Filename, "size", blob.Size)

	return uploadResult{ref: DescriptorRef(Descriptor{
		ID:           blob.ID,
		Filename:     blob.Filename,
		ContentType:  blob.ContentType,
		Size:         blob.Size,
		PageCount:    pageCount,
		ViewLink:     blob.ViewLink,
		DownloadLink: blob.DownloadLink,
	})}
}

func (u *Uploader) pageCount(f Upload, contentType string) *int {
	if contentType != "application/pdf" {
		return nil
	}
	if _, err := f.Body.Seek(0, io.SeekStart); err != nil {
		return nil
	}

	count, err := api.PageCount(f.Body, model.NewDefaultConfiguration())
	if err != nil {
		u.logger.Warn("failed to extract pdf page count", "filename", f.Filename, "error", err)
		return nil
	}
	return &count
}

// Discard deletes the blobs behind refs, logging failures.
// It returns the ids that could not be deleted.
func (u *Uploader) Discard(ctx context.Context, refs List) []string {
	var failed []string
	for _, ref := range refs {
		if err := u.store.Delete(ctx, ref.ID()); err != nil {
			u.logger.Error("blob cleanup failed", "id", ref.ID(), "error", err)
			failed = append(failed, ref.ID())
		}
	}
	return failed
}

func detectContentType(f Upload) string {
	if f.ContentType != "" && f.ContentType != "application/octet-stream" {
		return f.ContentType
	}

	buf := make([]byte, 512)
	n, _ := io.ReadFull(f.Body, buf)
	return http.DetectContentType(buf[:n])
}
