package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DriverBase44 = "base44"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

var (
	ErrMissingAPIKey    = errors.New("store.api_key (BASE44_API_KEY) is required for the base44 driver")
	ErrMissingBaseURL   = errors.New("store.base_url is required for the base44 driver")
	ErrMissingRedisAddr = errors.New("store.redis_addr is required for the redis driver")
	ErrUnknownDriver    = errors.New("unknown store driver")
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	Store StoreConfig `mapstructure:"store"`
	Chat  ChatConfig  `mapstructure:"chat"`
}

type StoreConfig struct {
	Driver        string        `mapstructure:"driver"`
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
}

type ChatConfig struct {
	CheckStoreOnRegister  bool          `mapstructure:"check_store_on_register"`
	RateLimit             int           `mapstructure:"rate_limit"`
	RateInterval          time.Duration `mapstructure:"rate_interval"`
	DisconnectSlowClients bool          `mapstructure:"disconnect_slow_clients"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "a_fallback_dev_secret_key")
	v.SetDefault("log_level", "info")

	v.SetDefault("store.driver", DriverBase44)
	v.SetDefault("store.base_url", "")
	v.SetDefault("store.api_key", "")
	v.SetDefault("store.timeout", "10s")
	v.SetDefault("store.redis_addr", "")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_prefix", "chat")

	v.SetDefault("chat.check_store_on_register", false)
	v.SetDefault("chat.rate_limit", 5)
	v.SetDefault("chat.rate_interval", "2s")
	v.SetDefault("chat.disconnect_slow_clients", false)
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default) and applies
// CHAT_* environment overrides on top of it.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("store.api_key", "CHAT_STORE_API_KEY", "BASE44_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind api key env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Str("store", cfg.Store.Driver).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverBase44:
		if c.Store.APIKey == "" {
			return ErrMissingAPIKey
		}
		if c.Store.BaseURL == "" {
			return ErrMissingBaseURL
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return ErrMissingRedisAddr
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver)
	}
	return nil
}
