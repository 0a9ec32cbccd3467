package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/JaimeStill/expense-api/internal/attachments"
)

const (
	EnvAttachmentsUploadPolicy  = "ATTACHMENTS_UPLOAD_POLICY"
	EnvAttachmentsUploadWorkers = "ATTACHMENTS_UPLOAD_WORKERS"
)

// AttachmentsConfig controls how uploads are fanned out and how partial
// failures are treated.
type AttachmentsConfig struct {
	UploadPolicy  string `toml:"upload_policy"`
	UploadWorkers int    `toml:"upload_workers"`
}

// Policy returns the configured upload policy.
func (c *AttachmentsConfig) Policy() attachments.Policy {
	return attachments.Policy(c.UploadPolicy)
}

func (c *AttachmentsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *AttachmentsConfig) Merge(overlay *AttachmentsConfig) {
	if overlay.UploadPolicy != "" {
		c.UploadPolicy = overlay.UploadPolicy
	}
	if overlay.UploadWorkers != 0 {
		c.UploadWorkers = overlay.UploadWorkers
	}
}

func (c *AttachmentsConfig) loadDefaults() {
	if c.UploadPolicy == "" {
		c.UploadPolicy = string(attachments.PolicyBestEffort)
	}
	if c.UploadWorkers == 0 {
		c.UploadWorkers = max(4, runtime.NumCPU())
	}
}

func (c *AttachmentsConfig) loadEnv() {
	if v := os.Getenv(EnvAttachmentsUploadPolicy); v != "" {
		c.UploadPolicy = v
	}
	if v := os.Getenv(EnvAttachmentsUploadWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.UploadWorkers = n
		}
	}
}

func (c *AttachmentsConfig) validate() error {
	if err := c.Policy().Validate(); err != nil {
		return err
	}
	if c.UploadWorkers < 1 {
		return fmt.Errorf("upload_workers must be at least 1")
	}
	return nil
}
