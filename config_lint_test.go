package sessionauth

import (
	"strings"
	"testing"
	"time"
)

func containsWarning(warnings []string, fragment string) bool {
	for _, w := range warnings {
		if strings.Contains(w, fragment) {
			return true
		}
	}
	return false
}

func TestLint_DefaultConfigNoWarnings(t *testing.T) {
	cfg := testConfig()
	if ws := cfg.Lint(); len(ws) != 0 {
		t.Fatalf("expected no warnings, got %v", ws)
	}
}

func TestLint_DevelopmentMode(t *testing.T) {
	cfg := testConfig()
	cfg.Security.ProductionMode = false
	if !containsWarning(cfg.Lint(), "ProductionMode") {
		t.Error("expected ProductionMode warning")
	}
}

func TestLint_CookieFlags(t *testing.T) {
	cfg := testConfig()
	cfg.Cookie.HTTPOnly = false
	cfg.Cookie.Secure = false
	ws := cfg.Lint()
	if !containsWarning(ws, "Cookie.HTTPOnly") || !containsWarning(ws, "Cookie.Secure") {
		t.Errorf("expected cookie warnings, got %v", ws)
	}
}

func TestLint_LongAccessTTL(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.AccessTTL = 2 * time.Hour
	if !containsWarning(cfg.Lint(), "AccessTTL") {
		t.Error("expected AccessTTL warning")
	}
}

func TestLint_RetentionFarBeyondRefresh(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Retention = 30 * 24 * time.Hour
	if !containsWarning(cfg.Lint(), "Retention") {
		t.Error("expected Retention warning")
	}
}

func TestLint_BlockingAudit(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	if !containsWarning(cfg.Lint(), "DropIfFull") {
		t.Error("expected DropIfFull warning")
	}
}
