// Package config loads and validates service configuration via Viper.
//
// All settings arrive through environment variables so the container contract
// stays flat; an optional config file can still override defaults for local
// development.
package config

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/viper"
)

// DBTypeSQLite and DBTypePostgres are the accepted DB_TYPE values.
const (
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgresql"
)

// DefaultSQLitePath is where the SQLite database lands when SQLITE_DB_PATH
// is unset. The name predates the SimilarWeb integration.
const DefaultSQLitePath = "ahrefs_data.db"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Ahrefs     AhrefsConfig     `mapstructure:"ahrefs"`
	SimilarWeb SimilarWebConfig `mapstructure:"similarweb"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DatabaseConfig selects and parameterizes the relational backend.
type DatabaseConfig struct {
	Type       string         `mapstructure:"type"`
	SQLitePath string         `mapstructure:"sqlite_path"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds the resolved PostgreSQL connection parameters.
// Each field is fed by a POSTGRES_* variable with a legacy DB_* fallback.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// AhrefsConfig carries the Ahrefs API credential.
type AhrefsConfig struct {
	Token string `mapstructure:"token"`
}

// SimilarWebConfig carries the SimilarWeb API credential.
type SimilarWebConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// Load builds a Config from the environment and an optional config file.
//
// Dual-named Postgres parameters are bound with the POSTGRES_* spelling
// first; Viper takes the first set variable, which implements the documented
// precedence (POSTGRES_* wins, then DB_*, then the default).
func Load(path string) (Config, error) {
	v := viper.New()

	setDefaults(v)

	bindings := [][]string{
		{"server.port", "SERVER_PORT"},
		{"logging.development", "LOG_DEVELOPMENT"},
		{"ahrefs.token", "AHREFS_API_TOKEN"},
		{"similarweb.api_key", "SIMILAR_WEB_KEY"},
		{"database.type", "DB_TYPE"},
		{"database.sqlite_path", "SQLITE_DB_PATH"},
		{"database.postgres.host", "POSTGRES_HOST", "DB_HOST"},
		{"database.postgres.port", "POSTGRES_PORT", "DB_PORT"},
		{"database.postgres.name", "POSTGRES_DB", "DB_NAME"},
		{"database.postgres.user", "POSTGRES_USER", "DB_USER"},
		{"database.postgres.password", "POSTGRES_PASSWORD", "DB_PASSWORD"},
	}
	for _, b := range bindings {
		if err := v.BindEnv(b...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", b[0], err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("logging.development", false)
	v.SetDefault("database.type", DBTypeSQLite)
	v.SetDefault("database.sqlite_path", DefaultSQLitePath)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.name", "seo_checker")
	v.SetDefault("database.postgres.user", "postgres")
}

// Validate enforces required values and reasonable limits.
// Missing provider credentials must fail startup loudly.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Ahrefs.Token == "" {
		return fmt.Errorf("AHREFS_API_TOKEN is required")
	}
	if c.SimilarWeb.APIKey == "" {
		return fmt.Errorf("SIMILAR_WEB_KEY is required")
	}
	switch c.Database.Type {
	case DBTypeSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path must not be empty")
		}
	case DBTypePostgres:
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host must not be empty")
		}
		if c.Database.Postgres.Port <= 0 {
			return fmt.Errorf("database.postgres.port must be > 0")
		}
	default:
		return fmt.Errorf("unknown database type %q (want %q or %q)",
			c.Database.Type, DBTypeSQLite, DBTypePostgres)
	}
	return nil
}

// DSN renders the Postgres connection parameters as a postgres:// URL.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   p.Host + ":" + strconv.Itoa(p.Port),
		Path:   "/" + p.Name,
	}
	if p.User != "" {
		if p.Password != "" {
			u.User = url.UserPassword(p.User, p.Password)
		} else {
			u.User = url.User(p.User)
		}
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String()
}
