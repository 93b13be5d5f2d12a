package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string   `mapstructure:"PORT"`
	Env                   string   `mapstructure:"ENV"`
	DatabaseURL           string   `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer            string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience          string   `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey        string   `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins           []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS          float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int      `mapstructure:"RATE_LIMIT_BURST"`
	SweepAt               string   `mapstructure:"SWEEP_AT"`
	ReassignWindowMinutes int      `mapstructure:"REASSIGN_WINDOW_MINUTES"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("SWEEP_AT", "18:00")
	v.SetDefault("REASSIGN_WINDOW_MINUTES", 15)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("SWEEP_AT")
	v.BindEnv("REASSIGN_WINDOW_MINUTES")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active, all requests get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// a signing key must be present so real JWT authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV is not development")
	}
	if c.ReassignWindowMinutes < 0 {
		return fmt.Errorf("REASSIGN_WINDOW_MINUTES must not be negative, got %d", c.ReassignWindowMinutes)
	}
	if c.SweepAt != "" {
		parts := strings.SplitN(c.SweepAt, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("SWEEP_AT must be HH:MM, got %q", c.SweepAt)
		}
	}
	return nil
}
