package main

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

// configPathEnvVar names the environment variable pointing at the yaml config file.
const configPathEnvVar = "CONFIG_PATH"

const defaultConfigPath = "config.yaml"

type Config struct {
	Server        ServerConfig    `koanf:"server"`
	Auth          AuthConfig      `koanf:"auth"`
	Database      PostgresConfig  `koanf:"database"`
	Redis         RedisConfig     `koanf:"redis"`
	Elasticsearch ElasticConfig   `koanf:"elasticsearch"`
	Recommend     RecommendConfig `koanf:"recommend"`
	Logging       LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Port      int    `koanf:"port"`
	Env       string `koanf:"env"`
	ClientURL string `koanf:"client_url"`
	CSRFKey   string `koanf:"csrf_key"`
}

type AuthConfig struct {
	Pepper  string `koanf:"pepper"`
	HMACKey string `koanf:"hmac_key"`
}

type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
}

type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type ElasticConfig struct {
	Enabled bool `koanf:"enabled"`
	// Addresses is a comma separated list of node urls.
	Addresses string `koanf:"addresses"`
	Index     string `koanf:"index"`
}

type RecommendConfig struct {
	HotWindowDays int  `koanf:"hot_window_days"`
	DailyCache    bool `koanf:"daily_cache"`
	// CacheTTL is how long hot lists stay cached, e.g. "5m". Empty or "0" disables it.
	CacheTTL string `koanf:"cache_ttl"`
}

type LoggingConfig struct {
	// Mode is "dev" or "prod".
	Mode string `koanf:"mode"`
}

func (pc PostgresConfig) ConnectionInfo() string {
	if pc.Password == "" {
		return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Name)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Password, pc.Name)
}

func (c Config) IsProd() bool {
	return c.Server.Env == "prod"
}

// ElasticAddresses splits the configured node list.
func (c Config) ElasticAddresses() []string {
	var out []string
	for _, a := range strings.Split(c.Elasticsearch.Addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// HotCacheTTL parses recommend.cache_ttl.
func (c Config) HotCacheTTL() (time.Duration, error) {
	if c.Recommend.CacheTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Recommend.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("recommend.cache_ttl: %w", err)
	}
	return d, nil
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:      1111,
			Env:       "dev",
			ClientURL: "http://localhost:3000",
		},
		Auth: AuthConfig{
			Pepper:  "secret-random-string",
			HMACKey: "secret-hmac-key",
		},
		Database: DefaultPostgresConfig(),
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Elasticsearch: ElasticConfig{
			Addresses: "http://localhost:9200",
			Index:     "poetries",
		},
		Recommend: RecommendConfig{
			HotWindowDays: 7,
			DailyCache:    true,
			CacheTTL:      "5m",
		},
		Logging: LoggingConfig{
			Mode: "dev",
		},
	}
}

func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "",
		Name:     "poetry_hub",
	}
}

// LoadConfig layers struct defaults, the yaml file and environment variables, in that order.
// In production the yaml file is required.
func LoadConfig(isProd bool) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	path := os.Getenv(configPathEnvVar)
	if path == "" {
		path = defaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	} else if isProd {
		return nil, fmt.Errorf("config file %s is required in production: %w", path, err)
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if isProd {
		cfg.Server.Env = "prod"
		cfg.Logging.Mode = "prod"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envMappings maps the environment variables we read to their koanf paths.
// Anything else in the environment is ignored.
var envMappings = map[string]string{
	"port":                      "server.port",
	"app_env":                   "server.env",
	"client_url":                "server.client_url",
	"csrf_key":                  "server.csrf_key",
	"pepper":                    "auth.pepper",
	"hmac_key":                  "auth.hmac_key",
	"database_host":             "database.host",
	"database_port":             "database.port",
	"database_user":             "database.user",
	"database_password":         "database.password",
	"database_name":             "database.name",
	"redis_enabled":             "redis.enabled",
	"redis_addr":                "redis.addr",
	"redis_password":            "redis.password",
	"redis_db":                  "redis.db",
	"elasticsearch_enabled":     "elasticsearch.enabled",
	"elasticsearch_addresses":   "elasticsearch.addresses",
	"elasticsearch_index":       "elasticsearch.index",
	"recommend_hot_window_days": "recommend.hot_window_days",
	"recommend_daily_cache":     "recommend.daily_cache",
	"recommend_cache_ttl":       "recommend.cache_ttl",
	"log_mode":                  "logging.mode",
}

// envTransform turns e.g. DATABASE_HOST into database.host. Unknown keys map to ""
// and are dropped by the provider.
func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Recommend.HotWindowDays < 0 || c.Recommend.HotWindowDays > 365 {
		return errors.New("recommend.hot_window_days must be between 0 and 365")
	}
	if _, err := c.HotCacheTTL(); err != nil {
		return err
	}
	if c.Elasticsearch.Enabled && len(c.ElasticAddresses()) == 0 {
		return errors.New("elasticsearch.addresses is required when elasticsearch is enabled")
	}
	if c.IsProd() && (c.Auth.Pepper == DefaultConfig().Auth.Pepper || c.Auth.HMACKey == DefaultConfig().Auth.HMACKey) {
		return errors.New("auth.pepper and auth.hmac_key must be set in production")
	}
	return nil
}
