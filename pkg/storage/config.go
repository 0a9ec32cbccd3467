package storage

import (
	"fmt"
	"os"
	"strconv"

	"github.com/docker/go-units"
)

// Backend names accepted by Config.Backend.
const (
	BackendFilesystem = "filesystem"
	BackendBadger     = "badger"
	BackendGCS        = "gcs"
)

// Config selects and configures the blob backend.
type Config struct {
	Backend         string `toml:"backend"`
	MaxUploadSize   string `toml:"max_upload_size"`
	StreamChunkSize string `toml:"stream_chunk_size"`

	Filesystem FilesystemConfig `toml:"filesystem"`
	Badger     BadgerConfig     `toml:"badger"`
	GCS        GCSConfig        `toml:"gcs"`

	maxUploadSizeVal   int64
	streamChunkSizeVal int64
}

// FilesystemConfig configures the local directory backend.
type FilesystemConfig struct {
	// BasePath is the root directory for blobs. Default: ".data/blobs"
	BasePath string `toml:"base_path"`
}

// BadgerConfig configures the embedded chunked backend.
type BadgerConfig struct {
	Path      string `toml:"path"`
	InMemory  bool   `toml:"in_memory"`
	ChunkSize string `toml:"chunk_size"`

	chunkSizeVal int64
}

// GCSConfig configures the Cloud Storage backend.
// An empty CredentialsFile falls back to application default credentials.
type GCSConfig struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	CredentialsFile string `toml:"credentials_file"`
	Endpoint        string `toml:"endpoint"`
}

// Env maps environment variable names for storage configuration.
type Env struct {
	Backend            string
	MaxUploadSize      string
	StreamChunkSize    string
	BasePath           string
	BadgerPath         string
	GCSBucket          string
	GCSPrefix          string
	GCSCredentialsFile string
}

// MaxUploadSizeBytes returns the parsed multipart body limit.
func (c *Config) MaxUploadSizeBytes() int64 {
	return c.maxUploadSizeVal
}

// StreamChunkSizeBytes returns the parsed download chunk size.
func (c *Config) StreamChunkSizeBytes() int {
	return int(c.streamChunkSizeVal)
}

// ChunkSizeBytes returns the parsed badger chunk size.
func (c *BadgerConfig) ChunkSizeBytes() int {
	return int(c.chunkSizeVal)
}

// Finalize applies defaults, loads environment overrides, and validates the storage configuration.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	if overlay.StreamChunkSize != "" {
		c.StreamChunkSize = overlay.StreamChunkSize
	}
	if overlay.Filesystem.BasePath != "" {
		c.Filesystem.BasePath = overlay.Filesystem.BasePath
	}
	if overlay.Badger.Path != "" {
		c.Badger.Path = overlay.Badger.Path
	}
	if overlay.Badger.InMemory {
		c.Badger.InMemory = true
	}
	if overlay.Badger.ChunkSize != "" {
		c.Badger.ChunkSize = overlay.Badger.ChunkSize
	}
	if overlay.GCS.Bucket != "" {
		c.GCS.Bucket = overlay.GCS.Bucket
	}
	if overlay.GCS.Prefix != "" {
		c.GCS.Prefix = overlay.GCS.Prefix
	}
	if overlay.GCS.CredentialsFile != "" {
		c.GCS.CredentialsFile = overlay.GCS.CredentialsFile
	}
	if overlay.GCS.Endpoint != "" {
		c.GCS.Endpoint = overlay.GCS.Endpoint
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendFilesystem
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "100MB"
	}
	if c.StreamChunkSize == "" {
		c.StreamChunkSize = "64KiB"
	}
	if c.Filesystem.BasePath == "" {
		c.Filesystem.BasePath = ".data/blobs"
	}
	if c.Badger.Path == "" {
		c.Badger.Path = ".data/badger"
	}
	if c.Badger.ChunkSize == "" {
		c.Badger.ChunkSize = "255KiB"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	set(env.Backend, &c.Backend)
	set(env.MaxUploadSize, &c.MaxUploadSize)
	set(env.StreamChunkSize, &c.StreamChunkSize)
	set(env.BasePath, &c.Filesystem.BasePath)
	set(env.BadgerPath, &c.Badger.Path)
	set(env.GCSBucket, &c.GCS.Bucket)
	set(env.GCSPrefix, &c.GCS.Prefix)
	set(env.GCSCredentialsFile, &c.GCS.CredentialsFile)
}

func (c *Config) validate() error {
	var err error

	if c.maxUploadSizeVal, err = positiveSize("max_upload_size", c.MaxUploadSize); err != nil {
		return err
	}
	if c.streamChunkSizeVal, err = positiveSize("stream_chunk_size", c.StreamChunkSize); err != nil {
		return err
	}
	if c.Badger.chunkSizeVal, err = positiveSize("badger.chunk_size", c.Badger.ChunkSize); err != nil {
		return err
	}

	switch c.Backend {
	case BackendFilesystem:
		if c.Filesystem.BasePath == "" {
			return fmt.Errorf("filesystem.base_path required")
		}
	case BackendBadger:
		if !c.Badger.InMemory && c.Badger.Path == "" {
			return fmt.Errorf("badger.path required")
		}
	case BackendGCS:
		if c.GCS.Bucket == "" {
			return fmt.Errorf("gcs.bucket required")
		}
	default:
		return fmt.Errorf("unknown backend %s", strconv.Quote(c.Backend))
	}
	return nil
}

func positiveSize(field, v string) (int64, error) {
	size, err := units.RAMInBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if size <= 0 {
		return 0, fmt.Errorf("%s must be positive", field)
	}
	return size, nil
}
