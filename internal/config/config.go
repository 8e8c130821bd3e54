package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer        string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL       string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience      string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey    string        `mapstructure:"AUTH_SIGNING_KEY"`
	DefaultTenant     string        `mapstructure:"DEFAULT_TENANT"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
	LipidPanelEnabled bool          `mapstructure:"LIPID_PANEL_ENABLED"`
	AnalysisTimeout   time.Duration `mapstructure:"ANALYSIS_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"DEFAULT_TENANT", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"BODY_LIMIT", "LIPID_PANEL_ENABLED", "ANALYSIS_TIMEOUT",
}

// Load reads configuration from the environment and an optional .env file.
// DATABASE_URL is required by every command that reaches this point.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ENV=development: every unauthenticated request is treated as an admin on the default clinic.")
		log.Println("WARNING: Set ENV=production and AUTH_ISSUER before exposing this server.")
	}
	return cfg, nil
}

// LoadEngine reads the settings the offline evaluator needs. Unlike Load it
// does not require a database.
func LoadEngine() (*Config, error) {
	return load()
}

func load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("LIPID_PANEL_ENABLED", false)
	v.SetDefault("ANALYSIS_TIMEOUT", "5s")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env file is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate refuses configurations that would run without authentication or
// without an analysis deadline.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_ISSUER must be set when ENV=%q; refusing to start without token verification", c.Env)
	}
	if c.AnalysisTimeout <= 0 {
		return fmt.Errorf("ANALYSIS_TIMEOUT must be positive, got %s", c.AnalysisTimeout)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
