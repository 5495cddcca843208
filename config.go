package sessionauth

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/MrEthical07/sessionauth/refresh"
)

// Config is built once at process start, validated, and cloned into the
// Engine by Build. The Engine never mutates it.
type Config struct {
	JWT      JWTConfig
	Store    StoreConfig
	Cookie   CookieConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

// JWTConfig holds both token families. Access and refresh tokens are always
// signed with separate keys.
type JWTConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// SigningMethod is "hs256" or "ed25519". For hs256 the private key is the
	// shared secret and the public key is unused.
	SigningMethod     string
	AccessPrivateKey  []byte
	AccessPublicKey   []byte
	RefreshPrivateKey []byte
	RefreshPublicKey  []byte

	Issuer   string
	Audience string
	Leeway   time.Duration
}

type StoreConfig struct {
	// RedisPrefix namespaces keys written by the Redis driver.
	RedisPrefix string
	// Retention is how long a refresh record survives after creation,
	// regardless of rotation. Must be at least JWT.RefreshTTL.
	Retention time.Duration
	// SweepInterval drives the housekeeping worker for stores without
	// native expiry. Zero disables it.
	SweepInterval time.Duration
}

// CookieConfig is the policy for the access and refresh cookies.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Path        string
	Domain      string
	Secure      bool
	HTTPOnly    bool
	SameSite    http.SameSite
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

type SecurityConfig struct {
	// ProductionMode hides internal error detail from HTTP responses.
	ProductionMode bool

	EnableAuthThrottle    bool
	AuthRequestsPerSecond float64
	AuthBurst             int

	// TrustedProxies lists peer addresses or CIDR ranges whose
	// X-Forwarded-For and X-Real-IP headers are believed. Empty means the
	// socket peer is always the client.
	TrustedProxies []string
}

// DefaultConfig returns the baseline: 10 minute access tokens, 3 day refresh
// tokens, 7 day record retention, cross-site HttpOnly cookies. Keys are left
// empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     10 * time.Minute,
			RefreshTTL:    3 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Store: StoreConfig{
			RedisPrefix:   "rt",
			Retention:     refresh.DefaultRetention,
			SweepInterval: 10 * time.Minute,
		},
		Cookie: CookieConfig{
			AccessName:  "access_token",
			RefreshName: "refresh_token",
			Path:        "/",
			Secure:      true,
			HTTPOnly:    true,
			SameSite:    http.SameSiteNoneMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode:        true,
			EnableAuthThrottle:    true,
			AuthRequestsPerSecond: 5,
			AuthBurst:             10,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessPrivateKey = cloneBytes(cfg.JWT.AccessPrivateKey)
	out.JWT.AccessPublicKey = cloneBytes(cfg.JWT.AccessPublicKey)
	out.JWT.RefreshPrivateKey = cloneBytes(cfg.JWT.RefreshPrivateKey)
	out.JWT.RefreshPublicKey = cloneBytes(cfg.JWT.RefreshPublicKey)
	if cfg.Security.TrustedProxies != nil {
		out.Security.TrustedProxies = append([]string(nil), cfg.Security.TrustedProxies...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the Engine cannot run safely with.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be > AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.Issuer != "" && strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must not be blank")
	}
	if c.JWT.Audience != "" && strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must not be blank")
	}

	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.AccessPrivateKey) == 0 || len(c.JWT.RefreshPrivateKey) == 0 {
			return errors.New("hs256 requires AccessPrivateKey and RefreshPrivateKey")
		}
	case "ed25519":
		if len(c.JWT.AccessPrivateKey) == 0 || len(c.JWT.AccessPublicKey) == 0 {
			return errors.New("ed25519 requires AccessPrivateKey and AccessPublicKey")
		}
		if len(c.JWT.RefreshPrivateKey) == 0 || len(c.JWT.RefreshPublicKey) == 0 {
			return errors.New("ed25519 requires RefreshPrivateKey and RefreshPublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if bytes.Equal(c.JWT.AccessPrivateKey, c.JWT.RefreshPrivateKey) {
		return errors.New("access and refresh tokens must use different keys")
	}

	// Store
	if c.Store.Retention < c.JWT.RefreshTTL {
		return fmt.Errorf("Store Retention (%s) must be >= JWT RefreshTTL (%s)", c.Store.Retention, c.JWT.RefreshTTL)
	}
	if c.Store.SweepInterval < 0 {
		return errors.New("Store SweepInterval must be >= 0")
	}
	if strings.ContainsAny(c.Store.RedisPrefix, " \t\n") {
		return errors.New("Store RedisPrefix must not contain whitespace")
	}

	// Cookie
	if c.Cookie.AccessName == "" || c.Cookie.RefreshName == "" {
		return errors.New("Cookie names must be set")
	}
	if c.Cookie.AccessName == c.Cookie.RefreshName {
		return errors.New("Cookie AccessName and RefreshName must differ")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Security
	if c.Security.EnableAuthThrottle {
		if c.Security.AuthRequestsPerSecond <= 0 {
			return errors.New("Security AuthRequestsPerSecond must be > 0 when throttling")
		}
		if c.Security.AuthBurst <= 0 {
			return errors.New("Security AuthBurst must be > 0 when throttling")
		}
	}
	for _, entry := range c.Security.TrustedProxies {
		if !validProxyEntry(strings.TrimSpace(entry)) {
			return fmt.Errorf("Security TrustedProxies entry %q is not an address or CIDR", entry)
		}
	}

	return nil
}

func validProxyEntry(entry string) bool {
	if strings.Contains(entry, "/") {
		_, err := netip.ParsePrefix(entry)
		return err == nil
	}
	_, err := netip.ParseAddr(entry)
	return err == nil
}

// Lint reports settings that are valid but usually unintended. It never
// fails Build.
func (c *Config) Lint() []string {
	var warnings []string
	if !c.Security.ProductionMode {
		warnings = append(warnings, "Security.ProductionMode is off: error detail is exposed to clients")
	}
	if !c.Cookie.HTTPOnly {
		warnings = append(warnings, "Cookie.HTTPOnly is off: tokens are readable from scripts")
	}
	if !c.Cookie.Secure {
		warnings = append(warnings, "Cookie.Secure is off: tokens travel over plain HTTP")
	}
	if c.JWT.AccessTTL > time.Hour {
		warnings = append(warnings, "JWT.AccessTTL exceeds 1h: access tokens cannot be revoked before expiry")
	}
	if c.Store.Retention > 4*c.JWT.RefreshTTL {
		warnings = append(warnings, "Store.Retention is far longer than JWT.RefreshTTL: records outlive their tokens")
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		warnings = append(warnings, "Audit.DropIfFull is off: a slow sink blocks token operations")
	}
	return warnings
}
