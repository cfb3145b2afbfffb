package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("SUGGEST_DEBOUNCE_MS", "not-a-number")
	t.Setenv("FREE_PLAN_INVOICE_LIMIT", "-5")

	cfg := Load()
	if cfg.DebounceMS != 300 {
		t.Fatalf("DebounceMS = %d, want 300", cfg.DebounceMS)
	}
	if cfg.FreePlanInvoiceLimit != 10 {
		t.Fatalf("FreePlanInvoiceLimit = %d, want 10", cfg.FreePlanInvoiceLimit)
	}
}
