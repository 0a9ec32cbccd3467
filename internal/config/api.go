package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/expense-api/pkg/middleware"
)

// APIConfig configures the HTTP API surface.
type APIConfig struct {
	BasePath string                `toml:"base_path"`
	CORS     middleware.CORSConfig `toml:"cors"`
}

// Finalize loads environment overrides and validates the API configuration.
// An empty BasePath mounts the API at the root.
func (c *APIConfig) Finalize() error {
	c.loadEnv()

	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("base_path must start with /")
	}
	c.BasePath = strings.TrimSuffix(c.BasePath, "/")

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	return nil
}

func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	c.CORS.Merge(&overlay.CORS)
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
}
