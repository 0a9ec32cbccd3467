package database_test

import (
	"strings"
	"testing"

	"github.com/JaimeStill/expense-api/pkg/database"
)

func TestErrNotReady(t *testing.T) {
	if database.ErrNotReady.Error() != "database not ready" {
		t.Errorf("ErrNotReady.Error() = %q, want %q", database.ErrNotReady.Error(), "database not ready")
	}
}

func TestConfig_Finalize_Defaults(t *testing.T) {
	cfg := &database.Config{Name: "expenses", User: "expense"}

	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Host != "localhost" {
		t.Errorf("Host = %q, want %q", cfg.Host, "localhost")
	}
	if cfg.Port != 5432 {
		t.Errorf("Port = %d, want %d", cfg.Port, 5432)
	}
	if cfg.SSLMode != "disable" {
		t.Errorf("SSLMode = %q, want %q", cfg.SSLMode, "disable")
	}
	if cfg.ConnTimeoutDuration().String() != "5s" {
		t.Errorf("ConnTimeoutDuration() = %v, want 5s", cfg.ConnTimeoutDuration())
	}
}

func TestConfig_Finalize_Env(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")
	t.Setenv("TEST_DB_PORT", "6543")
	t.Setenv("TEST_DB_SSL", "require")

	cfg := &database.Config{Name: "expenses", User: "expense"}
	env := &database.Env{
		Host:    "TEST_DB_HOST",
		Port:    "TEST_DB_PORT",
		SSLMode: "TEST_DB_SSL",
	}

	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	dsn := cfg.Dsn()
	for _, want := range []string{"host=db.internal", "port=6543", "sslmode=require", "dbname=expenses"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("Dsn() = %q, missing %q", dsn, want)
		}
	}
}

func TestConfig_Finalize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  database.Config
	}{
		{"missing name", database.Config{User: "u"}},
		{"missing user", database.Config{Name: "n"}},
		{"bad lifetime", database.Config{Name: "n", User: "u", ConnMaxLifetime: "forever"}},
		{"bad timeout", database.Config{Name: "n", User: "u", ConnTimeout: "soon"}},
		{"idle exceeds open", database.Config{Name: "n", User: "u", MaxOpenConns: 2, MaxIdleConns: 4}},
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
	base := &database.Config{Host: "localhost", Port: 5432, Name: "expenses", User: "expense"}
	overlay := &database.Config{Host: "prod-db", SSLMode: "verify-full"}

	base.Merge(overlay)

	if base.Host != "prod-db" {
		t.Errorf("Host = %q, want %q", base.Host, "prod-db")
	}
	if base.SSLMode != "verify-full" {
		t.Errorf("SSLMode = %q, want %q", base.SSLMode, "verify-full")
	}
	if base.Port != 5432 {
		t.Errorf("Port = %d, want %d", base.Port, 5432)
	}
}
