package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: "9090"
redis:
  addr: localhost:6379
session:
  countdown: 5s
  maxActivePerQuiz: 3
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port from yaml, got %q", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("expected env override for redis addr, got %q", cfg.Redis.Addr)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("expected jwt secret from env, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Session.MaxActivePerQuiz != 3 {
		t.Fatalf("expected max active 3, got %d", cfg.Session.MaxActivePerQuiz)
	}
	if got := TTLDuration(cfg.Session.Countdown, 3*time.Second); got != 5*time.Second {
		t.Fatalf("expected 5s countdown, got %s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("expected empty redis addr, got %q", cfg.Redis.Addr)
	}
}

func TestTTLDuration(t *testing.T) {
	fallback := 10 * time.Minute
	cases := map[string]time.Duration{
		"":      fallback,
		"bogus": fallback,
		"90s":   90 * time.Second,
		"24h":   24 * time.Hour,
	}
	for raw, want := range cases {
		if got := TTLDuration(raw, fallback); got != want {
			t.Fatalf("TTLDuration(%q) = %s, want %s", raw, got, want)
		}
	}
}
