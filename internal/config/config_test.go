package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.MaxFreeUses != 2 {
		t.Errorf("Expected default MAX_FREE_USES 2, got %d", cfg.MaxFreeUses)
	}
	if !cfg.IsDevelopment() {
		t.Error("Expected development mode without FRONTEND_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_FREE_USES", "1")
	t.Setenv("WEBHOOK_URL", "https://example.com/webhook")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxFreeUses != 1 {
		t.Errorf("Expected MAX_FREE_USES 1, got %d", cfg.MaxFreeUses)
	}
	if cfg.WebhookURL != "https://example.com/webhook" {
		t.Errorf("Unexpected webhook URL: %q", cfg.WebhookURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("MAX_FREE_USES", "0")
	if _, err := Load(); err == nil {
		t.Error("Expected error for MAX_FREE_USES=0")
	}
}
