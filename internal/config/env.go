package config

import (
	"github.com/JaimeStill/expense-api/pkg/database"
	"github.com/JaimeStill/expense-api/pkg/logging"
	"github.com/JaimeStill/expense-api/pkg/middleware"
	"github.com/JaimeStill/expense-api/pkg/storage"
)

var databaseEnv = &database.Env{
	Host:            "DATABASE_HOST",
	Port:            "DATABASE_PORT",
	Name:            "DATABASE_NAME",
	User:            "DATABASE_USER",
	Password:        "DATABASE_PASSWORD",
	SSLMode:         "DATABASE_SSL_MODE",
	MaxOpenConns:    "DATABASE_MAX_OPEN_CONNS",
	MaxIdleConns:    "DATABASE_MAX_IDLE_CONNS",
	ConnMaxLifetime: "DATABASE_CONN_MAX_LIFETIME",
	ConnTimeout:     "DATABASE_CONN_TIMEOUT",
}

var loggingEnv = &logging.Env{
	Level:     "LOGGING_LEVEL",
	Format:    "LOGGING_FORMAT",
	AddSource: "LOGGING_ADD_SOURCE",
}

var storageEnv = &storage.Env{
	Backend:            "STORAGE_BACKEND",
	MaxUploadSize:      "STORAGE_MAX_UPLOAD_SIZE",
	StreamChunkSize:    "STORAGE_STREAM_CHUNK_SIZE",
	BasePath:           "STORAGE_BASE_PATH",
	BadgerPath:         "STORAGE_BADGER_PATH",
	GCSBucket:          "STORAGE_GCS_BUCKET",
	GCSPrefix:          "STORAGE_GCS_PREFIX",
	GCSCredentialsFile: "STORAGE_GCS_CREDENTIALS_FILE",
}

var corsEnv = &middleware.CORSEnv{
	Enabled:          "API_CORS_ENABLED",
	Origins:          "API_CORS_ORIGINS",
	AllowedMethods:   "API_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "API_CORS_ALLOWED_HEADERS",
	AllowCredentials: "API_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "API_CORS_MAX_AGE",
}
