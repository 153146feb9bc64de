package config

import (
	"testing"
	"time"

	"glyph-wallet-go/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"GLYPH_API_BASE_URL", "GLYPH_STRATEGY", "GLYPH_CHAIN_ID", "QUOTE_INTERVAL", "QUOTE_DEBOUNCE", "STATUS_POLL_INTERVAL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Api.BaseURL != defaultApiBaseURL {
		t.Errorf("expected base url %s, got %s", defaultApiBaseURL, cfg.Api.BaseURL)
	}
	if cfg.Auth.Strategy != models.StrategyDirectProvider {
		t.Errorf("expected direct strategy, got %s", cfg.Auth.Strategy)
	}
	if cfg.Chain.ChainId != defaultChainId {
		t.Errorf("expected chain id %d, got %d", defaultChainId, cfg.Chain.ChainId)
	}
	if cfg.Transfer.QuoteInterval != 5*time.Second {
		t.Errorf("expected 5s quote interval, got %s", cfg.Transfer.QuoteInterval)
	}
	if cfg.Transfer.QuoteDebounce != 500*time.Millisecond {
		t.Errorf("expected 500ms debounce, got %s", cfg.Transfer.QuoteDebounce)
	}
	if cfg.Transfer.StatusPollInterval != 10*time.Second {
		t.Errorf("expected 10s poll interval, got %s", cfg.Transfer.StatusPollInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GLYPH_STRATEGY", "hosted")
	t.Setenv("GLYPH_CHAIN_ID", "1")
	t.Setenv("QUOTE_INTERVAL", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Auth.Strategy != models.StrategyHostedCustody {
		t.Errorf("expected hosted strategy, got %s", cfg.Auth.Strategy)
	}
	if cfg.Chain.ChainId != 1 {
		t.Errorf("expected chain id 1, got %d", cfg.Chain.ChainId)
	}
	if cfg.Transfer.QuoteInterval != 2*time.Second {
		t.Errorf("expected 2s, got %s", cfg.Transfer.QuoteInterval)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"GLYPH_STRATEGY", "magic"},
		{"GLYPH_CHAIN_ID", "-3"},
		{"STATUS_POLL_INTERVAL", "ten seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
