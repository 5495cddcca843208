package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverRedis     = "redis"
	DriverMiniredis = "miniredis"
	DriverSQLite    = "sqlite"
	DriverMemory    = "memory"
)

type Config struct {
	Port        int           // PORT (default: 3000)
	Env         string        // ENV: dev or production (default: dev)
	LogLevel    string        // LOG_LEVEL (default: info)
	LogFormat   string        // LOG_FORMAT: json or text (default: json)
	FrontendURL string        // FRONTEND_URL: the one origin allowed credentialed CORS
	Shutdown    time.Duration // SHUTDOWN_GRACE_PERIOD (default: 10s)

	AccessSecret  string // JWT_ACCESS_SECRET, required, at least 32 bytes
	RefreshSecret string // JWT_REFRESH_SECRET, required, at least 32 bytes
	Issuer        string // JWT_ISSUER
	Audience      string // JWT_AUDIENCE
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	StoreDriver   string        // STORE_DRIVER (default: redis when REDIS_ADDR is set, else miniredis)
	RedisAddr     string        // REDIS_ADDR
	RedisPrefix   string        // REDIS_PREFIX (default: rt)
	DatabaseFile  string        // DATABASE_FILE for the sqlite driver (default: sessionauth.db)
	Retention     time.Duration // REFRESH_RETENTION (default: 168h)
	SweepInterval time.Duration // SWEEP_INTERVAL (default: 10m)

	CookieDomain string // COOKIE_DOMAIN
	CookieSecure bool   // COOKIE_SECURE (default: true)

	AuthThrottle bool    // AUTH_THROTTLE (default: true)
	AuthRPS      float64 // AUTH_RPS (default: 5)
	AuthBurst    int     // AUTH_BURST (default: 10)

	// TRUSTED_PROXIES: comma-separated addresses or CIDRs whose forwarding
	// headers are believed. Empty trusts none.
	TrustedProxies []string

	AuditLog bool // AUDIT_LOG: write audit events through the logger
}

// Production reports whether client-facing errors must hide internal detail.
func (c Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Port:        getEnvIntOrDefault("PORT", 3000),
		Env:         getEnvOrDefault("ENV", "dev"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "json"),
		FrontendURL: os.Getenv("FRONTEND_URL"),
		Shutdown:    getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		AccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		Issuer:        os.Getenv("JWT_ISSUER"),
		Audience:      os.Getenv("JWT_AUDIENCE"),
		AccessTTL:     getEnvDurationOrDefault("JWT_ACCESS_TTL", 10*time.Minute),
		RefreshTTL:    getEnvDurationOrDefault("JWT_REFRESH_TTL", 72*time.Hour),

		StoreDriver:   strings.ToLower(os.Getenv("STORE_DRIVER")),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPrefix:   getEnvOrDefault("REDIS_PREFIX", "rt"),
		DatabaseFile:  getEnvOrDefault("DATABASE_FILE", "sessionauth.db"),
		Retention:     getEnvDurationOrDefault("REFRESH_RETENTION", 7*24*time.Hour),
		SweepInterval: getEnvDurationOrDefault("SWEEP_INTERVAL", 10*time.Minute),

		CookieDomain: os.Getenv("COOKIE_DOMAIN"),
		CookieSecure: getEnvBoolOrDefault("COOKIE_SECURE", true),

		AuthThrottle: getEnvBoolOrDefault("AUTH_THROTTLE", true),
		AuthRPS:      getEnvFloatOrDefault("AUTH_RPS", 5),
		AuthBurst:    getEnvIntOrDefault("AUTH_BURST", 10),

		TrustedProxies: getEnvListOrDefault("TRUSTED_PROXIES", nil),

		AuditLog: getEnvBoolOrDefault("AUDIT_LOG", false),
	}

	if cfg.StoreDriver == "" {
		cfg.StoreDriver = DriverMiniredis
		if cfg.RedisAddr != "" {
			cfg.StoreDriver = DriverRedis
		}
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if len(c.AccessSecret) < 32 || len(c.RefreshSecret) < 32 {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be at least 32 bytes")
	}
	switch c.StoreDriver {
	case DriverRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis driver")
		}
	case DriverMiniredis, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
