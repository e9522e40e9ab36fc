package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the whole application configuration.
type Config struct {
	Port string `mapstructure:"port"`

	// DATABASE_URL wins over the discrete POSTGRES_* fields
	DatabaseURL      string `mapstructure:"database_url"`
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`

	JWTSecret string `mapstructure:"jwt_secret"`

	GoEnv string `mapstructure:"go_env"` // dev/prod

	// false: a line larger than the available stock rejects the sale
	InventoryAllowNegative bool `mapstructure:"inventory_allow_negative"`
	MetricsEnabled         bool `mapstructure:"metrics_enabled"`
	MigrateOnStart         bool `mapstructure:"migrate_on_start"`
}

var defaults = map[string]interface{}{
	"port":                     "8080",
	"database_url":             "",
	"postgres_host":            "localhost",
	"postgres_port":            5432,
	"postgres_user":            "postgres",
	"postgres_password":        "postgres",
	"postgres_db":              "inventory",
	"postgres_sslmode":         "disable",
	"jwt_secret":               "",
	"go_env":                   "dev",
	"inventory_allow_negative": false,
	"metrics_enabled":          true,
	"migrate_on_start":         true,
}

// Load reads the environment, after an optional .env file in envFiles.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		// a missing file is fine, the real environment still applies
		_ = godotenv.Load(f)
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
		// Unmarshal only sees env keys that are bound
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	// required
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.Port == "" {
		return Config{}, errors.New("PORT is required")
	}
	if cfg.GoEnv != "dev" && cfg.GoEnv != "prod" {
		return Config{}, fmt.Errorf("GO_ENV must be dev or prod, got %q", cfg.GoEnv)
	}
	if cfg.DatabaseURL == "" && (cfg.PostgresHost == "" || cfg.PostgresDB == "") {
		return Config{}, errors.New("DATABASE_URL or POSTGRES_HOST and POSTGRES_DB are required")
	}

	return cfg, nil
}

// DSN returns a postgres URL usable by both gorm and the pgx stdlib driver.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:     c.PostgresDB,
		RawQuery: "sslmode=" + url.QueryEscape(c.PostgresSSLMode),
	}
	return u.String()
}

func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) IsProd() bool { return c.GoEnv == "prod" }
