package expensetypes

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/expense-api/pkg/handlers"
	"github.com/JaimeStill/expense-api/pkg/routes"
)

// Handler serves the read-only expense type endpoints.
type Handler struct {
	sys    System
	logger *slog.Logger
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "expensetypes"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/expense-type",
		Description: "Expense type catalog",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/all", Handler: h.All},
			{Method: "GET", Pattern: "/active", Handler: h.Active},
		},
	}
}

func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	types, err := h.sys.List(r.Context(), activeOnly)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, types)
}
