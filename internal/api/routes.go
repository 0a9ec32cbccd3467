package api

import (
	"context"
	"net/http"
	"time"

	"github.com/JaimeStill/expense-api/internal/attachments"
	"github.com/JaimeStill/expense-api/pkg/handlers"
	"github.com/JaimeStill/expense-api/pkg/routes"
)

const readyTimeout = 2 * time.Second

func registerRoutes(mux *http.ServeMux, basePath string, runtime *Runtime, domain *Domain) {
	downloads := attachments.NewHandler(runtime.Storage, runtime.StreamChunkSize, runtime.Logger)

	routes.Register(
		mux,
		basePath,
		domain.ExpenseTypes.Handler().Routes(),
		domain.Expenses.Handler(runtime.MaxUploadSize).Routes(),
		downloads.Routes(),
	)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(runtime))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleReady reports 503 until startup completes and while the database is unreachable.
func handleReady(runtime *Runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !runtime.Lifecycle.Ready() {
			handlers.RespondMessage(w, http.StatusServiceUnavailable, "starting")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := runtime.Database.Connection().PingContext(ctx); err != nil {
			runtime.Logger.Warn("readiness check failed", "error", err)
			handlers.RespondMessage(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		handlers.RespondMessage(w, http.StatusOK, "ready")
	}
}
