package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Env    string `mapstructure:"env"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Postgres struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"postgres"`
	Catalog struct {
		Questions      string `mapstructure:"questions"`       // file path or http(s) URL
		AffiliateLinks string `mapstructure:"affiliate_links"` // file path or http(s) URL
		TTL            string `mapstructure:"ttl"`
	} `mapstructure:"catalog"`
	Quiz struct {
		PerClass        int    `mapstructure:"per_class"`
		Recommendations int    `mapstructure:"recommendations"`
		SessionTTL      string `mapstructure:"session_ttl"`
	} `mapstructure:"quiz"`
}

// Default returns the configuration used when no file or env override is present.
func Default() Config {
	var c Config
	c.Env = "local"
	c.Server.Port = "8080"
	c.Catalog.Questions = "data/questions.json"
	c.Catalog.AffiliateLinks = "data/affiliateLinks.json"
	c.Catalog.TTL = "10m"
	c.Quiz.PerClass = 5
	c.Quiz.Recommendations = 3
	c.Quiz.SessionTTL = "1h"
	return c
}

// Load reads YAML config from path on top of Default. Env vars prefixed with
// QUIZ_ override file values (QUIZ_REDIS_ADDR for redis.addr). A missing file
// is not an error; keys that map to no field are.
func Load(path string) (Config, error) {
	cfg := Default()

	m := make(map[string]any)
	if err := mapstructure.Decode(cfg, &m); err != nil {
		return cfg, fmt.Errorf("mapstructure: %w", err)
	}

	v := viper.New()
	if err := v.MergeConfigMap(m); err != nil {
		return cfg, fmt.Errorf("merge config map: %w", err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("quiz")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("read config from file %s: %w", path, err)
	}
	if err := v.UnmarshalExact(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
