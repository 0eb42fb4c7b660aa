package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Store backends for the persisted credential.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
	StoreMongo = "mongo"
)

type Config struct {
	APIURL      string        `env:"SHOPCHAT_API_URL, default=http://localhost:8000/api"`
	Timeout     time.Duration `env:"SHOPCHAT_TIMEOUT, default=15s"`
	LogLevel    string        `env:"LOG_LEVEL,        default=info"`
	LogPretty   bool          `env:"LOG_PRETTY,       default=true"`
	MetricsAddr string        `env:"METRICS_ADDR"`

	Credentials CredentialConfig
	Mongo       MongoConfig
	Redis       RedisConfig
	Server      ServerConfig
}

type CredentialConfig struct {
	Store string `env:"CREDENTIAL_STORE, default=file"`
	Path  string `env:"CREDENTIAL_PATH,  default=~/.shopchat/credentials.json"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,      default=shopchat"`
	Profile  string `env:"MONGO_PROFILE, default=default"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
	Prefix   string `env:"REDIS_PREFIX,   default=shopchat:credential:"`
}

// ServerConfig is read by the reference backend only.
type ServerConfig struct {
	Port      string `env:"PORT,       default=8000"`
	JWTSecret string `env:"JWT_SECRET, default=dev-secret-change-me"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith resolves configuration from an arbitrary lookuper and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.Credentials.Store = strings.ToLower(strings.TrimSpace(c.Credentials.Store))
	switch c.Credentials.Store {
	case StoreFile, StoreRedis, StoreMongo:
	default:
		return fmt.Errorf("config: unknown CREDENTIAL_STORE %q", c.Credentials.Store)
	}
	if c.APIURL == "" {
		return fmt.Errorf("config: SHOPCHAT_API_URL must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: SHOPCHAT_TIMEOUT must be positive")
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	return nil
}
