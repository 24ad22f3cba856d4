package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// CallConfig bounds one class of store calls.
type CallConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

type Config struct {
	Mode     Mode   `yaml:"mode"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	GCPProjectID string `yaml:"gcp_project"`
	GCPLocation  string `yaml:"gcp_location"`
	ModelName    string `yaml:"model_name"`

	StorageBackend string `yaml:"storage_backend"` // memory, sqlite, postgres or firestore
	SQLitePath     string `yaml:"sqlite_path"`
	PostgresURL    string `yaml:"postgres_url"`

	// nil means "mock in local mode, Vertex in gcp mode"
	UseMockLLM *bool `yaml:"use_mock_llm"`

	AdminFallbackID     string `yaml:"admin_fallback_id"`
	AdminOrderByCreated bool   `yaml:"admin_order_by_created"`
	PageSize            int    `yaml:"page_size"`

	JWTSecret   string   `yaml:"jwt_secret"`
	CORSOrigins []string `yaml:"cors_origins"`

	ReadPolicy  CallConfig `yaml:"read_policy"`
	WritePolicy CallConfig `yaml:"write_policy"`

	NotifyDedupe     string `yaml:"notify_dedupe"` // body or id
	NotifyIcon       string `yaml:"notify_icon"`
	NotifyPermission string `yaml:"notify_permission"` // default, granted or denied
}

// MockLLM reports whether reply drafts should come from the mock drafter.
func (c *Config) MockLLM() bool {
	if c.UseMockLLM != nil {
		return *c.UseMockLLM
	}
	return c.Mode == ModeLocal
}

func defaults() *Config {
	return &Config{
		Mode:           ModeLocal,
		Port:           "8080",
		LogLevel:       "info",
		GCPLocation:    "us-central1",
		ModelName:      "gemini-2.5-flash-lite",
		StorageBackend: BackendMemory,
		SQLitePath:     "folio-inbox.db",
		PageSize:       10,
		JWTSecret:      "local-dev-secret",
		ReadPolicy: CallConfig{
			Timeout:        5 * time.Second,
			MaxAttempts:    3,
			InitialBackoff: 100 * time.Millisecond,
		},
		WritePolicy: CallConfig{
			Timeout:        5 * time.Second,
			MaxAttempts:    2,
			InitialBackoff: 200 * time.Millisecond,
		},
		NotifyDedupe:     "body",
		NotifyPermission: "default",
	}
}

// ─────────────────────────────────────────────
// Env helpers
// ─────────────────────────────────────────────

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getListEnv(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ─────────────────────────────────────────────
// Loading
// ─────────────────────────────────────────────

// Load builds the config from defaults, then the YAML file at path (if any), then
// FOLIO_* env vars. An empty path falls back to FOLIO_CONFIG.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("FOLIO_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	switch getEnv("FOLIO_MODE", string(c.Mode)) {
	case "gcp":
		c.Mode = ModeGCP
	default:
		c.Mode = ModeLocal
	}

	c.Port = getEnv("FOLIO_PORT", getEnv("PORT", c.Port))
	c.LogLevel = getEnv("FOLIO_LOG_LEVEL", c.LogLevel)

	c.GCPProjectID = getEnv("FOLIO_GCP_PROJECT", c.GCPProjectID)
	c.GCPLocation = getEnv("FOLIO_GCP_LOCATION", c.GCPLocation)
	c.ModelName = getEnv("FOLIO_MODEL_NAME", c.ModelName)

	c.StorageBackend = getEnv("FOLIO_STORAGE_BACKEND", c.StorageBackend)
	c.SQLitePath = getEnv("FOLIO_SQLITE_PATH", c.SQLitePath)
	c.PostgresURL = getEnv("FOLIO_POSTGRES_URL", c.PostgresURL)

	if os.Getenv("FOLIO_USE_MOCK_LLM") != "" {
		v := getBoolEnv("FOLIO_USE_MOCK_LLM", false)
		c.UseMockLLM = &v
	}

	c.AdminFallbackID = getEnv("FOLIO_ADMIN_FALLBACK_ID", c.AdminFallbackID)
	c.AdminOrderByCreated = getBoolEnv("FOLIO_ADMIN_ORDER_BY_CREATED", c.AdminOrderByCreated)
	c.PageSize = getIntEnv("FOLIO_PAGE_SIZE", c.PageSize)

	c.JWTSecret = getEnv("FOLIO_JWT_SECRET", c.JWTSecret)
	c.CORSOrigins = getListEnv("FOLIO_CORS_ORIGINS", c.CORSOrigins)

	c.ReadPolicy.Timeout = getDurationEnv("FOLIO_READ_TIMEOUT", c.ReadPolicy.Timeout)
	c.ReadPolicy.MaxAttempts = getIntEnv("FOLIO_READ_ATTEMPTS", c.ReadPolicy.MaxAttempts)
	c.ReadPolicy.InitialBackoff = getDurationEnv("FOLIO_READ_BACKOFF", c.ReadPolicy.InitialBackoff)
	c.WritePolicy.Timeout = getDurationEnv("FOLIO_WRITE_TIMEOUT", c.WritePolicy.Timeout)
	c.WritePolicy.MaxAttempts = getIntEnv("FOLIO_WRITE_ATTEMPTS", c.WritePolicy.MaxAttempts)
	c.WritePolicy.InitialBackoff = getDurationEnv("FOLIO_WRITE_BACKOFF", c.WritePolicy.InitialBackoff)

	c.NotifyDedupe = getEnv("FOLIO_NOTIFY_DEDUPE", c.NotifyDedupe)
	c.NotifyIcon = getEnv("FOLIO_NOTIFY_ICON", c.NotifyIcon)
	c.NotifyPermission = getEnv("FOLIO_NOTIFY_PERMISSION", c.NotifyPermission)
}

// Validate checks combinations that would only fail later at startup.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("FOLIO_POSTGRES_URL must be set for the postgres backend"))
		}
	case BackendFirestore:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("FOLIO_GCP_PROJECT must be set for the firestore backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}

	if c.Mode == ModeGCP {
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("FOLIO_GCP_PROJECT must be set in gcp mode"))
		}
		if c.JWTSecret == "" || c.JWTSecret == defaults().JWTSecret {
			errs = append(errs, errors.New("FOLIO_JWT_SECRET must be set in gcp mode"))
		}
	}
	if !c.MockLLM() && c.GCPProjectID == "" {
		errs = append(errs, errors.New("FOLIO_GCP_PROJECT must be set to draft replies with Vertex"))
	}

	switch c.NotifyDedupe {
	case "body", "id":
	default:
		errs = append(errs, fmt.Errorf("notify dedupe must be body or id, got %q", c.NotifyDedupe))
	}
	switch c.NotifyPermission {
	case "default", "granted", "denied":
	default:
		errs = append(errs, fmt.Errorf("notify permission must be default, granted or denied, got %q", c.NotifyPermission))
	}

	if c.PageSize < 1 {
		errs = append(errs, fmt.Errorf("page size must be positive, got %d", c.PageSize))
	}

	return errors.Join(errs...)
}
