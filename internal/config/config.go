package config

import (
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

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/emberly/config.yaml",
}

type Config struct {
	Log struct {
		Level     string `koanf:"level"`
		Format    string `koanf:"format"`
		Component string `koanf:"component"`
		Source    bool   `koanf:"source"`
	} `koanf:"log"`

	HTTP struct {
		Host string `koanf:"host"`
		Port string `koanf:"port"`
	} `koanf:"http"`

	DB struct {
		DSN      string `koanf:"dsn"`
		Host     string `koanf:"host"`
		Port     string `koanf:"port"`
		User     string `koanf:"user"`
		Password string `koanf:"password"`
		Name     string `koanf:"name"`
	} `koanf:"db"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Oracle struct {
		// URL of the keyed text-generation endpoint.
		URL string `koanf:"url"`
		// APIKeys are rotated round-robin across batch calls.
		APIKeys []string `koanf:"api_keys"`
		// Timeout applies per batch call.
		Timeout time.Duration `koanf:"timeout"`
		// RPS caps request rate per credential.
		RPS float64 `koanf:"rps"`
	} `koanf:"oracle"`

	Ranking struct {
		// TTL is the snapshot expiry horizon.
		TTL time.Duration `koanf:"ttl"`
		// PoolSize bounds the candidate pool per ranking run.
		PoolSize int `koanf:"pool_size"`
		// OverfetchFactor compensates for post-filter shrinkage.
		OverfetchFactor int `koanf:"overfetch_factor"`
		// BatchSize is the number of candidates per oracle call.
		BatchSize int `koanf:"batch_size"`
		// Deadline bounds one full scoring pass.
		Deadline time.Duration `koanf:"deadline"`
	} `koanf:"ranking"`

	App struct {
		ENV string `koanf:"env"`
	} `koanf:"app"`
}

// defaults returns a Config with all default values. File and env
// settings are layered on top.
func defaults() *Config {
	cfg := &Config{}

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Log.Component = "api_server"

	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = "8080"

	cfg.DB.Host = "localhost"
	cfg.DB.Port = "3306"
	cfg.DB.User = "root"
	cfg.DB.Password = "root"
	cfg.DB.Name = "emberly"

	cfg.Redis.Addr = "localhost:6379"

	cfg.Oracle.URL = "https://generativelanguage.googleapis.com/v1/models/gemini-pro:generateContent"
	cfg.Oracle.Timeout = 20 * time.Second
	cfg.Oracle.RPS = 1

	cfg.Ranking.TTL = 24 * time.Hour
	cfg.Ranking.PoolSize = 50
	cfg.Ranking.OverfetchFactor = 3
	cfg.Ranking.BatchSize = 2
	cfg.Ranking.Deadline = 60 * time.Second

	cfg.App.ENV = "development"

	return cfg
}

// envKeyPaths maps EMBERLY_* variable names onto config paths. An
// explicit table because several field names contain underscores, which
// a mechanical "_" to "." rewrite would mangle (ORACLE_API_KEYS must
// land on oracle.api_keys, not oracle.api.keys).
var envKeyPaths = map[string]string{
	"LOG_LEVEL":     "log.level",
	"LOG_FORMAT":    "log.format",
	"LOG_COMPONENT": "log.component",
	"LOG_SOURCE":    "log.source",

	"HTTP_HOST": "http.host",
	"HTTP_PORT": "http.port",

	"DB_DSN":      "db.dsn",
	"DB_HOST":     "db.host",
	"DB_PORT":     "db.port",
	"DB_USER":     "db.user",
	"DB_PASSWORD": "db.password",
	"DB_NAME":     "db.name",

	"REDIS_ADDR":     "redis.addr",
	"REDIS_PASSWORD": "redis.password",
	"REDIS_DB":       "redis.db",

	"ORACLE_URL":      "oracle.url",
	"ORACLE_API_KEYS": "oracle.api_keys",
	"ORACLE_TIMEOUT":  "oracle.timeout",
	"ORACLE_RPS":      "oracle.rps",

	"RANKING_TTL":              "ranking.ttl",
	"RANKING_POOL_SIZE":        "ranking.pool_size",
	"RANKING_OVERFETCH_FACTOR": "ranking.overfetch_factor",
	"RANKING_BATCH_SIZE":       "ranking.batch_size",
	"RANKING_DEADLINE":         "ranking.deadline",

	"APP_ENV": "app.env",
}

// New loads configuration: defaults first, then an optional YAML file,
// then EMBERLY_* environment variables (EMBERLY_ORACLE_API_KEYS is
// comma-separated). Variables absent from envKeyPaths are ignored.
func New() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := configFilePath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider("EMBERLY_", ".", func(s string) string {
		return envKeyPaths[strings.TrimPrefix(s, "EMBERLY_")]
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// env values arrive comma-joined and unsplit or split untrimmed,
	// depending on the provider; normalize either way
	keys := make([]string, 0, len(cfg.Oracle.APIKeys))
	for _, k := range cfg.Oracle.APIKeys {
		keys = append(keys, splitKeys(k)...)
	}
	cfg.Oracle.APIKeys = keys

	if cfg.DB.DSN == "" {
		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	return cfg, nil
}

// Default returns the built-in configuration without touching files or
// the environment. Used by tests.
func Default() *Config {
	cfg := defaults()
	cfg.DB.DSN = fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
	)
	return cfg
}

func configFilePath() string {
	if p := strings.TrimSpace(os.Getenv(ConfigPathEnvVar)); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitKeys(s string) []string {
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}
