package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shopdesk.yaml")
	content := []byte(`
api:
  base_url: https://shop.example.com/api
  timeout: 5s
chat:
  page_size: 20
session:
  path: /tmp/shopdesk-test/session.json
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.API.BaseURL != "https://shop.example.com/api" {
		t.Errorf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.API.Timeout)
	}
	if cfg.Push.URL != "wss://shop.example.com/ws" {
		t.Errorf("expected derived push url, got %q", cfg.Push.URL)
	}
	if cfg.Push.PongWait != 60*time.Second {
		t.Errorf("expected default pong wait, got %v", cfg.Push.PongWait)
	}
	if cfg.Chat.PageSize != 20 {
		t.Errorf("expected page size 20, got %d", cfg.Chat.PageSize)
	}
	if cfg.Chat.RosterSize != 50 {
		t.Errorf("expected default roster size 50, got %d", cfg.Chat.RosterSize)
	}
	if cfg.Session.Path != "/tmp/shopdesk-test/session.json" {
		t.Errorf("unexpected session path %q", cfg.Session.Path)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shopdesk.yaml")
	if err := os.WriteFile(path, []byte("api:\n  base_url: http://a.example/api\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SHOPDESK_API_BASE_URL", "http://b.example:8080/api")
	t.Setenv("SHOPDESK_CHAT_PAGE_SIZE", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "http://b.example:8080/api" {
		t.Errorf("env override ignored, got %q", cfg.API.BaseURL)
	}
	if cfg.Push.URL != "ws://b.example:8080/ws" {
		t.Errorf("unexpected push url %q", cfg.Push.URL)
	}
	if cfg.Chat.PageSize != 7 {
		t.Errorf("expected page size 7, got %d", cfg.Chat.PageSize)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestPushURLFromBase(t *testing.T) {
	cases := map[string]string{
		"http://localhost:9005/api":  "ws://localhost:9005/ws",
		"https://shop.example/api/":  "wss://shop.example/ws",
		"http://127.0.0.1:1234":      "ws://127.0.0.1:1234/ws",
	}
	for in, want := range cases {
		if got := pushURLFromBase(in); got != want {
			t.Errorf("pushURLFromBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestServerSeeds(t *testing.T) {
	t.Setenv("SEED_USERS", "Admin:admin@shop.test:secret:admin, Sam:sam@shop.test:pw:seller")
	t.Setenv("TOKEN_TTL", "2h")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("load server: %v", err)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("expected 2h ttl, got %v", cfg.TokenTTL)
	}
	if cfg.Addr != ":9005" {
		t.Errorf("expected default addr, got %q", cfg.Addr)
	}

	seeds, err := cfg.Seeds()
	if err != nil {
		t.Fatalf("seeds: %v", err)
	}
	if len(seeds) != 2 {
		t.Fatalf("expected 2 seeds, got %d", len(seeds))
	}
	if seeds[1].Email != "sam@shop.test" || seeds[1].Role != "seller" {
		t.Errorf("unexpected seed %+v", seeds[1])
	}

	bad := &ServerConfig{SeedUsers: []string{"only:three:parts"}}
	if _, err := bad.Seeds(); err == nil {
		t.Fatal("expected error for malformed seed")
	}
}
