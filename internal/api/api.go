// Package api assembles the expense HTTP API from infrastructure and domain systems.
package api

import (
	"net/http"

	"github.com/JaimeStill/expense-api/internal/config"
	"github.com/JaimeStill/expense-api/internal/infrastructure"
	"github.com/JaimeStill/expense-api/pkg/middleware"
)

// NewHandler builds the domain systems, registers their routes, and wraps
// the mux in the middleware chain.
func NewHandler(cfg *config.Config, infra *infrastructure.Infrastructure) http.Handler {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, cfg.API.BasePath, runtime, domain)

	chain := middleware.New()
	chain.Use(middleware.TrimSlash())
	chain.Use(middleware.CORS(&cfg.API.CORS))
	chain.Use(middleware.Logger(runtime.Logger))

	return chain.Apply(mux)
}
