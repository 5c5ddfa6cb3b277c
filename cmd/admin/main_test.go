package main

import (
	"testing"

	"recipebox/internal/auth"
)

func TestLoadDatabaseConfigPrefersFlags(t *testing.T) {
	t.Setenv("DATABASE_HOST", "env-host")
	t.Setenv("DATABASE_PORT", "6543")
	t.Setenv("POSTGRES_DB", "env-db")
	t.Setenv("POSTGRES_USER", "env-user")
	t.Setenv("POSTGRES_PASSWORD", "env-pass")
	t.Setenv("DATABASE_SSLMODE", "")

	cfg, err := loadDatabaseConfig("flag-host", 0, "", "flag-user", "", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Host != "flag-host" || cfg.User != "flag-user" {
		t.Fatalf("flags should win, got %+v", cfg)
	}
	if cfg.Port != 6543 || cfg.Name != "env-db" || cfg.Password != "env-pass" {
		t.Fatalf("env fallback not applied, got %+v", cfg)
	}
	if cfg.SSLMode != "disable" {
		t.Fatalf("expected default sslmode, got %q", cfg.SSLMode)
	}
}

func TestLoadDatabaseConfigRequiresCredentials(t *testing.T) {
	for _, key := range []string{"POSTGRES_DB", "DB_NAME", "POSTGRES_USER", "DB_USER", "POSTGRES_PASSWORD", "DB_PASSWORD"} {
		t.Setenv(key, "")
	}
	if _, err := loadDatabaseConfig("", 0, "db", "", "", ""); err == nil {
		t.Fatal("expected error without database user")
	}

	t.Setenv("DATABASE_PORT", "not-a-port")
	if _, err := loadDatabaseConfig("", 0, "db", "u", "p", ""); err == nil {
		t.Fatal("expected error for invalid DATABASE_PORT")
	}
}

func TestGeneratedPasswordPassesPolicy(t *testing.T) {
	password, err := generateRandomPassword(24)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(password) != 32 {
		t.Fatalf("expected 32 chars, got %d", len(password))
	}
	if err := auth.ValidatePassword("password", password, "admin", "admin@example.com"); err != nil {
		t.Fatalf("generated password rejected: %v", err)
	}
}
