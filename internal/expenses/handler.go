package expenses

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/expense-api/internal/attachments"
	"github.com/JaimeStill/expense-api/pkg/handlers"
	"github.com/JaimeStill/expense-api/pkg/routes"
	"github.com/google/uuid"
)

// multipartMemory is the portion of a multipart body kept in memory; the rest spills to temp files.
const multipartMemory = 32 << 20

// Handler provides HTTP endpoints for expense operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
}

func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "expenses"),
		maxUploadSize: maxUploadSize,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/expense",
		Description: "Expense records and their attachments",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/create", Handler: h.Create},
			{Method: "GET", Pattern: "/all", Handler: h.All},
			{Method: "GET", Pattern: "/user/{userEmail}", Handler: h.ByUser},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "PUT", Pattern: "/update/{expenseId}", Handler: h.Update},
			{Method: "DELETE", Pattern: "/delete", Handler: h.Delete},
			{Method: "DELETE", Pattern: "/delete/{id}", Handler: h.DeleteOne},
			{Method: "DELETE", Pattern: "/{expenseId}/attachment/{blobId}", Handler: h.RemoveAttachment},
		},
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fields, err := parseFields(r.MultipartForm)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	uploads, closeUploads, err := attachments.OpenUploads(fileHeaders(r.MultipartForm, createFileFields))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrValidation, err))
		return
	}
	defer closeUploads()

	e, err := h.sys.Create(r.Context(), CreateCommand{Fields: fields, Files: uploads})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, CreateResponse{
		Message:   "Expense created successfully",
		ExpenseID: e.ID,
	})
}

func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "")
}

func (h *Handler) ByUser(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.PathValue("userEmail"))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, userEmail string) {
	views, err := h.sys.List(r.Context(), userEmail)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, views)
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	view, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, view)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("expenseId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := h.parseMultipart(w, r); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	patch, err := parsePatch(r.MultipartForm)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	uploads, closeUploads, err := attachments.OpenUploads(fileHeaders(r.MultipartForm, updateFileFields))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrValidation, err))
		return
	}
	defer closeUploads()

	kept := "[]"
	if v, ok := formValues(r.MultipartForm.Value).lookup("keptAttachments"); ok {
		kept = v
	}

	view, err := h.sys.Update(r.Context(), id, UpdateCommand{
		Patch:    patch,
		Kept:     kept,
		NewFiles: uploads,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, UpdateResponse{
		Message: "Expense updated successfully",
		Expense: view,
	})
}

type deleteRequest struct {
	ExpenseIDs []string `json:"expenseIds"`
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrValidation, err))
		return
	}

	result, err := h.sys.Delete(r.Context(), req.ExpenseIDs)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) DeleteOne(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.DeleteOne(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) RemoveAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("expenseId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if _, err := h.sys.RemoveAttachment(r.Context(), id, r.PathValue("blobId")); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondMessage(w, http.StatusOK, "Attachment removed successfully")
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrFileTooLarge
		}
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}
