package attachments

import (
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/expense-api/pkg/handlers"
	"github.com/JaimeStill/expense-api/pkg/routes"
	"github.com/JaimeStill/expense-api/pkg/storage"
)

var errAttachmentNotFound = errors.New("attachment not found")

// Handler serves attachment downloads.
type Handler struct {
	store     storage.System
	chunkSize int
	logger    *slog.Logger
}

func NewHandler(store storage.System, chunkSize int, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		chunkSize: chunkSize,
		logger:    logger.With("handler", "attachments"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/expense",
		Description: "Attachment download",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/attachment/{blobId}", Handler: h.Download},
		},
	}
}

// Download streams blob content chunk by chunk. Malformed ids are 400;
// every other failure up to and including the first chunk read is 404.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("blobId")
	if err := storage.ValidateID(id); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	seq, blob, err := storage.Stream(r.Context(), h.store, id, h.chunkSize)
	if err != nil {
		h.logger.Warn("attachment lookup failed", "id", id, "error", err)
		handlers.RespondError(w, h.logger, http.StatusNotFound, errAttachmentNotFound)
		return
	}

	next, stop := iter.Pull2(seq)
	defer stop()

	first, err, more := next()
	if err != nil {
		h.logger.Warn("attachment read failed", "id", id, "error", err)
		handlers.RespondError(w, h.logger, http.StatusNotFound, errAttachmentNotFound)
		return
	}

	header := w.Header()
	header.Set("Content-Type", storage.ContentTypeOrDefault(blob.ContentType))
	header.Set("Content-Disposition", storage.ContentDisposition(blob.Filename))
	if blob.Size >= 0 {
		header.Set("Content-Length", strconv.FormatInt(blob.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for chunk := first; more; chunk, err, more = next() {
		if err != nil {
			h.logger.Warn("attachment stream aborted", "id", id, "error", err)
			return
		}
		if _, err := w.Write(chunk); err != nil {
			h.logger.Debug("client went away during download", "id", id, "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
