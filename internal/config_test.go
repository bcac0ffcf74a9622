package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestModelConfig_RequiresAPIKey(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Model.APIKey = ""
	if err := cfg.Model.Validate(); err == nil {
		t.Fatal("empty api key should fail validation")
	}
	cfg.Model.APIKey = "key"
	if err := cfg.Model.Validate(); err != nil {
		t.Fatalf("valid model config failed: %v", err)
	}
}

func TestModelConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Model.Temperature != 0.9 || cfg.Model.TopK != 1 || cfg.Model.TopP != 1 {
		t.Errorf("sampling defaults = %+v", cfg.Model)
	}
	if cfg.Model.MaxOutputTokens != 2048 {
		t.Errorf("max output tokens = %d", cfg.Model.MaxOutputTokens)
	}
}

func TestIngestConfig_DisabledSkipsValidation(t *testing.T) {
	cfg := IngestConfig{Enabled: false, InboxPath: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled ingest should pass: %v", err)
	}
	cfg = IngestConfig{Enabled: true, InboxPath: ""}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled ingest without inbox path should fail")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Model.APIKey = "key"
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
