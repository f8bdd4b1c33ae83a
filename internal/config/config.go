package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	// Study log endpoints are reachable without a token.
	StudyLogPolicyOpen = "open"
	// Study log endpoints require a token and only see the caller's logs.
	StudyLogPolicyScoped = "scoped"

	envPrefix = "FLASHDECK"
)

type Config struct {
	Env      string   `mapstructure:"env"`
	Log      Log      `mapstructure:"log"`
	API      API      `mapstructure:"api"`
	Database Database `mapstructure:"database"`
	Auth     Auth     `mapstructure:"auth"`
	StudyLog StudyLog `mapstructure:"study_logs"`
	Export   Export   `mapstructure:"export"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type API struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

type Database struct {
	Type            string        `mapstructure:"type"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdle         int           `mapstructure:"max_idle"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
}

type Auth struct {
	JWTSecret             string        `mapstructure:"jwt_secret"`
	AccessTokenTTLMinutes int           `mapstructure:"access_token_ttl_minutes"`
	RefreshTokenTTLDays   int           `mapstructure:"refresh_token_ttl_days"`
	BcryptCost            int           `mapstructure:"bcrypt_cost"`
	CleanupInterval       time.Duration `mapstructure:"cleanup_interval"`
}

// AccessTokenTTL is the lifetime of an access token.
func (a Auth) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL is the lifetime of a refresh token.
func (a Auth) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLDays) * 24 * time.Hour
}

type StudyLog struct {
	AuthPolicy string `mapstructure:"auth_policy"`
}

type Export struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	URLTTL          time.Duration `mapstructure:"url_ttl"`
}

// devSecret signs tokens outside production when no secret is configured.
const devSecret = "flashdeck-dev-secret-change-me"

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvLocal)
	v.SetDefault("log.level", "")

	v.SetDefault("api.port", 8000)
	v.SetDefault("api.read_timeout", 15*time.Second)
	v.SetDefault("api.write_timeout", 15*time.Second)
	v.SetDefault("api.idle_timeout", 60*time.Second)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "data/flashcards.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "flashcards")
	v.SetDefault("database.user", "flashcards")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.max_idle", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.max_retries", 5)
	v.SetDefault("database.retry_delay", 2*time.Second)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl_minutes", 30)
	v.SetDefault("auth.refresh_token_ttl_days", 7)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.cleanup_interval", time.Hour)

	v.SetDefault("study_logs.auth_policy", StudyLogPolicyOpen)

	v.SetDefault("export.enabled", false)
	v.SetDefault("export.endpoint", "")
	v.SetDefault("export.region", "us-east-1")
	v.SetDefault("export.bucket", "")
	v.SetDefault("export.access_key_id", "")
	v.SetDefault("export.secret_access_key", "")
	v.SetDefault("export.use_ssl", true)
	v.SetDefault("export.url_ttl", 15*time.Minute)
}

// LoadConfig loads the configuration from an optional YAML file and the
// environment. Environment variables use the FLASHDECK_ prefix with dots
// replaced by underscores, e.g. FLASHDECK_AUTH_JWT_SECRET. A .env file in the
// working directory is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = devSecret
		log.Printf("Warning: auth.jwt_secret not set, using development secret")
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database type: %q", c.Database.Type)
	}

	switch c.StudyLog.AuthPolicy {
	case StudyLogPolicyOpen, StudyLogPolicyScoped:
	default:
		return fmt.Errorf("unsupported study_logs.auth_policy: %q", c.StudyLog.AuthPolicy)
	}

	if c.Env == EnvProd && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in %s", EnvProd)
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		return fmt.Errorf("auth.access_token_ttl_minutes must be positive")
	}
	if c.Auth.RefreshTokenTTLDays <= 0 {
		return fmt.Errorf("auth.refresh_token_ttl_days must be positive")
	}
	if c.Export.Enabled && c.Export.Bucket == "" {
		return fmt.Errorf("export.bucket is required when export is enabled")
	}
	return nil
}

// DSN returns the driver name and data source name for the configured database.
func (d Database) DSN() (driver, dsn string) {
	if d.Type == "postgres" {
		return "postgres", fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	}
	return "sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", d.Path)
}

// MigrationURL returns the URL golang-migrate uses to reach the database.
func (d Database) MigrationURL() string {
	if d.Type == "postgres" {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Password),
			Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
			Path:     "/" + d.Name,
			RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
		}
		return u.String()
	}
	return "sqlite3://" + d.Path + "?_foreign_keys=on"
}
