package main

import (
	"strings"
	"time"

	"github.com/JeanGrijp/csrfguard/session"
	"github.com/spf13/viper"
)

type CSRFConfig struct {
	HeaderName         string   `mapstructure:"header_name"`
	ParameterName      string   `mapstructure:"parameter_name"`
	Ignore             []string `mapstructure:"ignore"`
	EnforceOriginCheck bool     `mapstructure:"enforce_origin_check"`
	AllowedOrigin      string   `mapstructure:"allowed_origin"`
	FailOpen           bool     `mapstructure:"fail_open"`
	Rotate             bool     `mapstructure:"rotate"`
	Disabled           bool     `mapstructure:"disabled"`
}

type Config struct {
	Addr     string              `mapstructure:"addr"`
	LogLevel string              `mapstructure:"log_level"`
	Store    string              `mapstructure:"store"` // memory, redis or miniredis
	Redis    session.RedisConfig `mapstructure:"redis"`
	Session  session.Config      `mapstructure:"session"`
	CSRF     CSRFConfig          `mapstructure:"csrf"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("store", "memory")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.key_prefix", session.DefaultRedisKeyPrefix)
	v.SetDefault("session.cookie_name", "SESSIONID")
	v.SetDefault("session.idle_timeout", 30*time.Minute)
	v.SetDefault("csrf.ignore", []string{"/webhooks/**"})
	v.SetDefault("csrf.rotate", true)
}

// LoadConfig reads the optional YAML file at path, then CSRFDEMO_* variables.
func LoadConfig(v *viper.Viper, path string) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("csrfdemo")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
