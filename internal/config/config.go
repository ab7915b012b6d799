package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar points at an optional YAML file layered over the defaults.
const ConfigPathEnvVar = "CONFIG_PATH"

const (
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

var DefaultConfigPaths = []string{
	"config.yaml",
	"/etc/moodfeed/config.yaml",
}

type Config struct {
	Database DatabaseConfig `koanf:"db"`
	JWT      JWTConfig      `koanf:"jwt"`
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Mood     MoodConfig     `koanf:"mood"`
	Logging  LoggingConfig  `koanf:"log"`
	Sentry   SentryConfig   `koanf:"sentry"`
}

type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"sslmode"`
}

type JWTConfig struct {
	Secret        string        `koanf:"secret"`
	AccessExpiry  time.Duration `koanf:"access_expiry"`
	RefreshExpiry time.Duration `koanf:"refresh_expiry"`
}

type ServerConfig struct {
	Port        string `koanf:"port"`
	CORSOrigins string `koanf:"cors_origins"`
}

// StoreConfig selects the document backend. An empty BadgerPath keeps the
// badger backend in memory.
type StoreConfig struct {
	Backend    string `koanf:"backend"`
	BadgerPath string `koanf:"badger_path"`
}

type MoodConfig struct {
	NearbyRadius float64       `koanf:"nearby_radius"`
	RecentWindow time.Duration `koanf:"recent_window"`
}

type LoggingConfig struct {
	Level     string        `koanf:"level"`
	Retention time.Duration `koanf:"retention"`
}

type SentryConfig struct {
	DSN         string `koanf:"dsn"`
	Environment string `koanf:"environment"`
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "moodfeed",
			SSLMode: "disable",
		},
		JWT: JWTConfig{
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
		},
		Server: ServerConfig{
			Port:        "8080",
			CORSOrigins: "*",
		},
		Store: StoreConfig{
			Backend: BackendPostgres,
		},
		Mood: MoodConfig{
			NearbyRadius: 5000,
			RecentWindow: 7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Retention: 30 * 24 * time.Hour,
		},
		Sentry: SentryConfig{
			Environment: "production",
		},
	}
}

// Load layers defaults, an optional YAML file and the environment, in that
// order of precedence, and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envMappings = map[string]string{
	"db_host":            "db.host",
	"db_port":            "db.port",
	"db_user":            "db.user",
	"db_password":        "db.password",
	"db_name":            "db.name",
	"db_sslmode":         "db.sslmode",
	"jwt_secret":         "jwt.secret",
	"jwt_access_expiry":  "jwt.access_expiry",
	"jwt_refresh_expiry": "jwt.refresh_expiry",
	"port":               "server.port",
	"cors_origins":       "server.cors_origins",
	"store_backend":      "store.backend",
	"badger_path":        "store.badger_path",
	"nearby_radius":      "mood.nearby_radius",
	"recent_window":      "mood.recent_window",
	"log_level":          "log.level",
	"log_retention":      "log.retention",
	"sentry_dsn":         "sentry.dsn",
	"sentry_environment": "sentry.environment",
}

// envTransformFunc maps known variables onto config paths. Anything else
// returns "" and is ignored by koanf.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.AccessExpiry <= 0 || c.JWT.RefreshExpiry <= 0 {
		errs = append(errs, errors.New("JWT expiries must be positive"))
	}
	switch c.Store.Backend {
	case BackendPostgres, BackendBadger:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendBadger, c.Store.Backend))
	}
	if c.Mood.NearbyRadius <= 0 {
		errs = append(errs, errors.New("NEARBY_RADIUS must be positive"))
	}
	if c.Mood.RecentWindow <= 0 {
		errs = append(errs, errors.New("RECENT_WINDOW must be positive"))
	}
	if c.Logging.Retention <= 0 {
		errs = append(errs, errors.New("LOG_RETENTION must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) DSN() string {
	return "host=" + c.Database.Host +
		" user=" + c.Database.User +
		" password=" + c.Database.Password +
		" dbname=" + c.Database.Name +
		" port=" + c.Database.Port +
		" sslmode=" + c.Database.SSLMode +
		" TimeZone=UTC"
}
