package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	StorageBackend   string        `mapstructure:"STORAGE_BACKEND"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	RemoteAPIURL     string        `mapstructure:"REMOTE_API_URL"`
	RemoteTimeout    time.Duration `mapstructure:"REMOTE_TIMEOUT"`
	SimulatedLatency time.Duration `mapstructure:"SIMULATED_LATENCY"`
	AuthSigningKey   string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer       string        `mapstructure:"AUTH_ISSUER"`
	AuthTokenTTL     time.Duration `mapstructure:"AUTH_TOKEN_TTL"`
	PasswordHashCost int           `mapstructure:"PASSWORD_HASH_COST"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MorningSlots     string        `mapstructure:"MORNING_SLOTS"`
	AfternoonSlots   string        `mapstructure:"AFTERNOON_SLOTS"`
	SlotMinutes      int           `mapstructure:"SLOT_MINUTES"`
	PaymentTimeScale float64       `mapstructure:"PAYMENT_TIME_SCALE"`
	SeedMockData     bool          `mapstructure:"SEED_MOCK_DATA"`
	TLSEnabled       bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile      string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile       string        `mapstructure:"TLS_KEY_FILE"`
}

var defaults = map[string]interface{}{
	"PORT":               "8000",
	"ENV":                "development",
	"STORAGE_BACKEND":    BackendMemory,
	"DB_MAX_CONNS":       20,
	"DB_MIN_CONNS":       2,
	"REMOTE_TIMEOUT":     "3s",
	"SIMULATED_LATENCY":  "0s",
	"AUTH_ISSUER":        "medibook",
	"AUTH_TOKEN_TTL":     "24h",
	"PASSWORD_HASH_COST": 10,
	"CORS_ORIGINS":       "http://localhost:3000",
	"RATE_LIMIT_RPS":     50,
	"RATE_LIMIT_BURST":   100,
	"REQUEST_TIMEOUT":    "30s",
	"MORNING_SLOTS":      "09:00-12:00",
	"AFTERNOON_SLOTS":    "14:00-17:00",
	"SLOT_MINUTES":       15,
	"PAYMENT_TIME_SCALE": 1.0,
	"SEED_MOCK_DATA":     true,
}

var envKeys = []string{
	"PORT", "ENV", "STORAGE_BACKEND", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "REMOTE_API_URL", "REMOTE_TIMEOUT", "SIMULATED_LATENCY",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_TOKEN_TTL", "PASSWORD_HASH_COST", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"MORNING_SLOTS", "AFTERNOON_SLOTS", "SLOT_MINUTES", "PAYMENT_TIME_SCALE",
	"SEED_MOCK_DATA", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

// devSigningKey is only ever used when ENV=development and no key is set.
const devSigningKey = "medibook-development-signing-key"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))

	if cfg.AuthSigningKey == "" && cfg.IsDev() {
		cfg.AuthSigningKey = devSigningKey
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects configurations the server cannot run safely with.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORAGE_BACKEND is %q", BackendRedis)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND is %q", BackendPostgres)
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q, %q or %q, got %q",
			BackendMemory, BackendRedis, BackendPostgres, c.StorageBackend)
	}

	if c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required outside development")
	}
	if c.IsProduction() && (c.AuthSigningKey == devSigningKey || len(c.AuthSigningKey) < 32) {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters and not the development key in production")
	}

	for name, window := range map[string]string{"MORNING_SLOTS": c.MorningSlots, "AFTERNOON_SLOTS": c.AfternoonSlots} {
		if err := checkWindow(window); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.SlotMinutes <= 0 || c.SlotMinutes > 240 {
		return fmt.Errorf("SLOT_MINUTES must be between 1 and 240, got %d", c.SlotMinutes)
	}
	if c.PasswordHashCost < 4 || c.PasswordHashCost > 31 {
		return fmt.Errorf("PASSWORD_HASH_COST must be between 4 and 31, got %d", c.PasswordHashCost)
	}
	if c.PaymentTimeScale < 0 {
		return fmt.Errorf("PAYMENT_TIME_SCALE must not be negative, got %v", c.PaymentTimeScale)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}

// Windows returns the configured day-part windows; an empty value disables
// that day part.
func (c *Config) Windows() []string {
	var out []string
	for _, w := range []string{c.MorningSlots, c.AfternoonSlots} {
		if strings.TrimSpace(w) != "" {
			out = append(out, w)
		}
	}
	return out
}

// checkWindow accepts "" or "HH:MM-HH:MM" with start before end.
func checkWindow(w string) error {
	if strings.TrimSpace(w) == "" {
		return nil
	}
	parts := strings.Split(w, "-")
	if len(parts) != 2 {
		return fmt.Errorf("window %q must look like 09:00-12:00", w)
	}
	start, err := time.Parse("15:04", strings.TrimSpace(parts[0]))
	if err != nil {
		return fmt.Errorf("window %q: bad start: %w", w, err)
	}
	end, err := time.Parse("15:04", strings.TrimSpace(parts[1]))
	if err != nil {
		return fmt.Errorf("window %q: bad end: %w", w, err)
	}
	if !start.Before(end) {
		return fmt.Errorf("window %q: start must be before end", w)
	}
	return nil
}
