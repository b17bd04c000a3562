package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "PROPDESK"

// Token store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// ErrInvalidConfig signals a configuration that cannot drive a client.
var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	API      APISettings      `mapstructure:"api"`
	Token    TokenSettings    `mapstructure:"token"`
	Redis    RedisSettings    `mapstructure:"redis"`
	Identity IdentitySettings `mapstructure:"identity"`
	Log      LogSettings      `mapstructure:"log"`
}

type APISettings struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TokenSettings selects where the bearer token survives between runs.
type TokenSettings struct {
	Store string `mapstructure:"store"`
	File  string `mapstructure:"file"`
	Key   string `mapstructure:"key"`
}

type RedisSettings struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// IdentitySettings configure the secondary identity source used when the
// API cannot say who is signed in.
type IdentitySettings struct {
	Enabled     bool   `mapstructure:"enabled"`
	DatabaseURL string `mapstructure:"database_url"`
	SessionFile string `mapstructure:"session_file"`
	JWTSecret   string `mapstructure:"jwt_secret"`
}

type LogSettings struct {
	Env   string `mapstructure:"env"`
	Level string `mapstructure:"level"`
}

// Load reads defaults, an optional config file and PROPDESK_* variables, in
// increasing order of precedence.
func Load(file string) (*Config, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"api.timeout",
		"token.store",
		"token.file",
		"token.key",
		"redis.addr",
		"redis.password",
		"redis.db",
		"redis.prefix",
		"redis.token_ttl",
		"identity.enabled",
		"identity.database_url",
		"identity.session_file",
		"identity.jwt_secret",
		"log.env",
		"log.level",
	}); err != nil {
		return nil, err
	}
	// the dashboard build reads its API root from VITE_API_URL
	if err := v.BindEnv("api.base_url", envPrefix+"_API_BASE_URL", "VITE_API_URL"); err != nil {
		return nil, fmt.Errorf("bind env for api.base_url: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:3000")
	v.SetDefault("api.timeout", "30s")

	v.SetDefault("token.store", StoreFile)
	v.SetDefault("token.file", "")
	v.SetDefault("token.key", "auth_token")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "propdesk")
	v.SetDefault("redis.token_ttl", "0s")

	v.SetDefault("identity.enabled", false)
	v.SetDefault("identity.database_url", "")
	v.SetDefault("identity.session_file", "")
	v.SetDefault("identity.jwt_secret", "")

	v.SetDefault("log.env", "production")
	v.SetDefault("log.level", "warn")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("api.base_url %q is not an http(s) URL", c.API.BaseURL))
	}
	if c.API.Timeout < 0 {
		problems = append(problems, "api.timeout must not be negative")
	}

	switch c.Token.Store {
	case StoreFile, StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			problems = append(problems, "redis.addr is required for the redis token store")
		}
	default:
		problems = append(problems, fmt.Sprintf("token.store %q is not one of file, redis, memory", c.Token.Store))
	}
	if c.Token.Key == "" {
		problems = append(problems, "token.key must not be empty")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level %q is not a log level", c.Log.Level))
	}

	if c.Identity.Enabled && c.Identity.DatabaseURL == "" {
		problems = append(problems, "identity.database_url is required when identity is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
