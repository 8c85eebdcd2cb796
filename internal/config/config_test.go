package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend:5000/")
	t.Setenv("GATE_TERMINAL_ID", "main-entrance")

	cfg := Load()

	if cfg.Backend.URL != "http://backend:5000" {
		t.Errorf("expected trailing slash trimmed, got '%s'", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != 10*time.Second {
		t.Errorf("expected default backend timeout 10s, got %v", cfg.Backend.Timeout)
	}
	if cfg.Camera.Timeout != 5*time.Second {
		t.Errorf("expected default camera timeout 5s, got %v", cfg.Camera.Timeout)
	}
	if cfg.Gate.FaceWindow != time.Minute {
		t.Errorf("expected default face window 1m, got %v", cfg.Gate.FaceWindow)
	}
	if cfg.Gate.Locale != "pl" {
		t.Errorf("expected default locale 'pl', got '%s'", cfg.Gate.Locale)
	}
	if cfg.NATS.SubjectPrefix != "gate" {
		t.Errorf("expected default subject prefix 'gate', got '%s'", cfg.NATS.SubjectPrefix)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("CAMERA_TIMEOUT", "2")
	t.Setenv("GATE_ASCII_STATUS", "true")
	t.Setenv("GATE_EVENT_LOG_SIZE", "50")
	t.Setenv("WEB_TRIGGER_RATE", "0.5")

	cfg := Load()

	if cfg.Backend.Timeout != 3*time.Second {
		t.Errorf("expected 3s, got %v", cfg.Backend.Timeout)
	}
	if cfg.Camera.Timeout != 2*time.Second {
		t.Errorf("expected bare seconds to parse as 2s, got %v", cfg.Camera.Timeout)
	}
	if !cfg.Gate.ASCIIStatus {
		t.Error("expected ASCIIStatus to be true")
	}
	if cfg.Gate.EventLogSize != 50 {
		t.Errorf("expected 50, got %d", cfg.Gate.EventLogSize)
	}
	if cfg.Web.RateLimit != 0.5 {
		t.Errorf("expected 0.5, got %v", cfg.Web.RateLimit)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "soon")
	t.Setenv("GATE_EVENT_LOG_SIZE", "-4")
	t.Setenv("GATE_ASCII_STATUS", "maybe")

	cfg := Load()

	if cfg.Backend.Timeout != 10*time.Second {
		t.Errorf("expected fallback 10s, got %v", cfg.Backend.Timeout)
	}
	if cfg.Gate.EventLogSize != 200 {
		t.Errorf("expected fallback 200, got %d", cfg.Gate.EventLogSize)
	}
	if cfg.Gate.ASCIIStatus {
		t.Error("expected fallback false")
	}
}

func TestValidate_MissingBackend(t *testing.T) {
	cfg := &Config{Gate: GateConfig{TerminalID: "g1"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing backend URL")
	}
}

func TestGetAccessToken_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("secret-jwt\n"), 0600); err != nil {
		t.Fatalf("write token: %v", err)
	}
	t.Setenv("BACKEND_ACCESS_TOKEN_FILE", path)

	cfg := BackendConfig{}
	if got := cfg.GetAccessToken(); got != "secret-jwt" {
		t.Errorf("expected 'secret-jwt', got '%s'", got)
	}

	cfg.AccessToken = "inline"
	if got := cfg.GetAccessToken(); got != "inline" {
		t.Errorf("expected inline token to win, got '%s'", got)
	}
}

func TestLoad_WebAccess(t *testing.T) {
	t.Setenv("WEB_OPERATOR_TOKEN", "s3cret")
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://lobby.example.com, ,https://desk.example.com")

	cfg := Load()

	if cfg.Web.OperatorToken != "s3cret" {
		t.Errorf("expected operator token, got '%s'", cfg.Web.OperatorToken)
	}
	if len(cfg.Web.AllowedOrigins) != 2 || cfg.Web.AllowedOrigins[1] != "https://desk.example.com" {
		t.Errorf("unexpected origins %v", cfg.Web.AllowedOrigins)
	}
}
