package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAddr       = ":3000"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultUploadDir  = "public/uploads"
	defaultLockFile   = "maintenance.lock"

	minSecretLength = 16
)

// Config holds every runtime setting the service consumes. Values come from
// the environment and are validated once at startup.
type Config struct {
	Addr    string
	PGDSN   string
	Version string

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	CORSOrigin string
	LogLevel   string

	MaintenanceSecret string
	MaintenanceLock   string

	UploadDir string

	RateBurst    int
	RatePerSec   int
	LoginLimit   int
	LoginWindow  time.Duration
}

// Load reads configuration from the environment. It fails fast on anything
// unusable so a misconfigured deployment never starts serving.
func Load() (Config, error) {
	cfg := Config{
		Addr:              envOr("APP_ADDR", defaultAddr),
		PGDSN:             os.Getenv("LUMINA_PG_DSN"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		CORSOrigin:        envOr("CORS_ORIGIN", "http://localhost:3000"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		MaintenanceSecret: os.Getenv("MAINTENANCE_SECRET"),
		MaintenanceLock:   envOr("MAINTENANCE_LOCK", defaultLockFile),
		UploadDir:         envOr("UPLOAD_DIR", defaultUploadDir),
		AccessTTL:         defaultAccessTTL,
		RefreshTTL:        defaultRefreshTTL,
		RateBurst:         20,
		RatePerSec:        10,
		LoginLimit:        5,
		LoginWindow:       time.Hour,
	}

	if len(cfg.JWTSecret) < minSecretLength {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	}

	var err error
	if raw := os.Getenv("JWT_EXPIRES_IN"); raw != "" {
		if cfg.AccessTTL, err = ParseDuration(raw); err != nil {
			return Config{}, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
		}
	}
	if raw := os.Getenv("JWT_REFRESH_EXPIRES_IN"); raw != "" {
		if cfg.RefreshTTL, err = ParseDuration(raw); err != nil {
			return Config{}, fmt.Errorf("JWT_REFRESH_EXPIRES_IN: %w", err)
		}
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return Config{}, errors.New("token lifetimes must be positive")
	}

	if raw := os.Getenv("RATE_BURST"); raw != "" {
		if cfg.RateBurst, err = positiveInt(raw); err != nil {
			return Config{}, fmt.Errorf("RATE_BURST: %w", err)
		}
	}
	if raw := os.Getenv("RATE_PER_SEC"); raw != "" {
		if cfg.RatePerSec, err = positiveInt(raw); err != nil {
			return Config{}, fmt.Errorf("RATE_PER_SEC: %w", err)
		}
	}
	if raw := os.Getenv("LOGIN_RATE_LIMIT"); raw != "" {
		if cfg.LoginLimit, err = positiveInt(raw); err != nil {
			return Config{}, fmt.Errorf("LOGIN_RATE_LIMIT: %w", err)
		}
	}

	return cfg, nil
}

// ParseDuration extends time.ParseDuration with a day suffix so lifetimes can
// be written the way operators expect ("15m", "12h", "7d").
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty duration")
	}
	if strings.HasSuffix(raw, "d") {
		days, err := strconv.ParseFloat(strings.TrimSuffix(raw, "d"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		return time.Duration(days * float64(24*time.Hour)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return d, nil
}

func positiveInt(raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	if v <= 0 {
		return 0, errors.New("value must be positive")
	}
	return v, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
