package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PabloGalante/folio-inbox/internal/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "folio.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FOLIO_CONFIG", "")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Mode != config.ModeLocal {
		t.Fatalf("expected local mode, got %q", cfg.Mode)
	}
	if cfg.StorageBackend != config.BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.StorageBackend)
	}
	if !cfg.MockLLM() {
		t.Fatal("expected mock drafter in local mode")
	}
	if cfg.PageSize != 10 {
		t.Fatalf("expected page size 10, got %d", cfg.PageSize)
	}
	if cfg.ReadPolicy.MaxAttempts != 3 || cfg.WritePolicy.MaxAttempts != 2 {
		t.Fatalf("unexpected retry defaults: %+v %+v", cfg.ReadPolicy, cfg.WritePolicy)
	}
	if cfg.NotifyDedupe != "body" {
		t.Fatalf("expected body dedupe, got %q", cfg.NotifyDedupe)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
storage_backend: sqlite
sqlite_path: /tmp/inbox.db
page_size: 25
admin_order_by_created: true
cors_origins:
  - https://folio.example
read_policy:
  timeout: 2s
  max_attempts: 4
  initial_backoff: 50ms
notify_dedupe: id
`)
	t.Setenv("FOLIO_PAGE_SIZE", "30")
	t.Setenv("FOLIO_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.StorageBackend != config.BackendSQLite || cfg.SQLitePath != "/tmp/inbox.db" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.PageSize != 30 {
		t.Fatalf("env should override file page size, got %d", cfg.PageSize)
	}
	if !cfg.AdminOrderByCreated {
		t.Fatal("expected admin order by created from file")
	}
	if got := strings.Join(cfg.CORSOrigins, ","); got != "https://a.example,https://b.example" {
		t.Fatalf("unexpected CORS origins %q", got)
	}
	if cfg.ReadPolicy.Timeout != 2*time.Second || cfg.ReadPolicy.MaxAttempts != 4 || cfg.ReadPolicy.InitialBackoff != 50*time.Millisecond {
		t.Fatalf("unexpected read policy: %+v", cfg.ReadPolicy)
	}
	if cfg.WritePolicy.MaxAttempts != 2 {
		t.Fatalf("write policy default should survive partial file, got %+v", cfg.WritePolicy)
	}
	if cfg.NotifyDedupe != "id" {
		t.Fatalf("expected id dedupe, got %q", cfg.NotifyDedupe)
	}
}

func TestLoadFromConfigEnv(t *testing.T) {
	path := writeFile(t, "port: \"9090\"\n")
	t.Setenv("FOLIO_CONFIG", path)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected port from FOLIO_CONFIG file, got %q", cfg.Port)
	}
}

func TestMockLLMOverride(t *testing.T) {
	t.Setenv("FOLIO_USE_MOCK_LLM", "false")
	t.Setenv("FOLIO_GCP_PROJECT", "folio-dev")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MockLLM() {
		t.Fatal("expected env to disable the mock drafter")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown backend", map[string]string{"FOLIO_STORAGE_BACKEND": "redis"}, "unknown storage backend"},
		{"postgres without url", map[string]string{"FOLIO_STORAGE_BACKEND": "postgres"}, "FOLIO_POSTGRES_URL"},
		{"firestore without project", map[string]string{"FOLIO_STORAGE_BACKEND": "firestore"}, "FOLIO_GCP_PROJECT"},
		{"gcp without secret", map[string]string{"FOLIO_MODE": "gcp", "FOLIO_GCP_PROJECT": "p"}, "FOLIO_JWT_SECRET"},
		{"bad dedupe", map[string]string{"FOLIO_NOTIFY_DEDUPE": "title"}, "notify dedupe"},
		{"bad permission", map[string]string{"FOLIO_NOTIFY_PERMISSION": "maybe"}, "notify permission"},
		{"bad page size", map[string]string{"FOLIO_PAGE_SIZE": "-1"}, "page size"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := config.Load("")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
