package storage_test

import (
	"testing"

	"github.com/JaimeStill/expense-api/pkg/storage"
)

func TestConfig_Finalize_Defaults(t *testing.T) {
	cfg := &storage.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Backend != storage.BackendFilesystem {
		t.Errorf("Backend = %q, want %q", cfg.Backend, storage.BackendFilesystem)
	}
	if cfg.Filesystem.BasePath != ".data/blobs" {
		t.Errorf("BasePath = %q, want %q", cfg.Filesystem.BasePath, ".data/blobs")
	}
	if cfg.MaxUploadSizeBytes() != 100<<20 {
		t.Errorf("MaxUploadSizeBytes() = %d, want %d", cfg.MaxUploadSizeBytes(), 100<<20)
	}
	if cfg.StreamChunkSizeBytes() != 64<<10 {
		t.Errorf("StreamChunkSizeBytes() = %d, want %d", cfg.StreamChunkSizeBytes(), 64<<10)
	}
	if cfg.Badger.ChunkSizeBytes() != 255<<10 {
		t.Errorf("Badger.ChunkSizeBytes() = %d, want %d", cfg.Badger.ChunkSizeBytes(), 255<<10)
	}
}

func TestConfig_Finalize_Env(t *testing.T) {
	t.Setenv("TEST_STORAGE_BACKEND", "gcs")
	t.Setenv("TEST_STORAGE_BUCKET", "expense-attachments")
	t.Setenv("TEST_STORAGE_MAX_UPLOAD", "25MB")

	cfg := &storage.Config{}
	env := &storage.Env{
		Backend:       "TEST_STORAGE_BACKEND",
		GCSBucket:     "TEST_STORAGE_BUCKET",
		MaxUploadSize: "TEST_STORAGE_MAX_UPLOAD",
	}

	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Backend != storage.BackendGCS {
		t.Errorf("Backend = %q, want %q", cfg.Backend, storage.BackendGCS)
	}
	if cfg.GCS.Bucket != "expense-attachments" {
		t.Errorf("GCS.Bucket = %q, want %q", cfg.GCS.Bucket, "expense-attachments")
	}
	if cfg.MaxUploadSizeBytes() != 25<<20 {
		t.Errorf("MaxUploadSizeBytes() = %d, want %d", cfg.MaxUploadSizeBytes(), 25<<20)
	}
}

func TestConfig_Finalize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  storage.Config
	}{
		{"unknown backend", storage.Config{Backend: "s3"}},
		{"gcs without bucket", storage.Config{Backend: storage.BackendGCS}},
		{"bad upload size", storage.Config{MaxUploadSize: "lots"}},
		{"zero chunk size", storage.Config{StreamChunkSize: "0"}},
		{"bad badger chunk", storage.Config{Badger: storage.BadgerConfig{ChunkSize: "-1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(nil); err == nil {
				t.Error("Finalize() error = nil, want error")
			}
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	base := &storage.Config{
		Backend:    storage.BackendFilesystem,
		Filesystem: storage.FilesystemConfig{BasePath: "/var/blobs"},
	}
	overlay := &storage.Config{
		Backend: storage.BackendBadger,
		Badger:  storage.BadgerConfig{Path: "/var/badger", ChunkSize: "128KiB"},
	}

	base.Merge(overlay)

	if base.Backend != storage.BackendBadger {
		t.Errorf("Backend = %q, want %q", base.Backend, storage.BackendBadger)
	}
	if base.Filesystem.BasePath != "/var/blobs" {
		t.Errorf("BasePath = %q, want preserved", base.Filesystem.BasePath)
	}
	if base.Badger.Path != "/var/badger" || base.Badger.ChunkSize != "128KiB" {
		t.Errorf("Badger = %+v, want overlay values", base.Badger)
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"3f1e2d4c-5b6a-4789-8abc-def012345678", true},
		{"", false},
		{"507f1f77bcf86cd799439011", false},
		{"3f1e2d4c5b6a47898abcdef012345678", false},
		{"{3f1e2d4c-5b6a-4789-8abc-def012345678}", false},
	}

	for _, tt := range tests {
		err := storage.ValidateID(tt.id)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateID(%q) error = %v, valid want %v", tt.id, err, tt.valid)
		}
	}
}
