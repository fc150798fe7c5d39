package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port  string `yaml:"port" env:"PORT"`
		Debug bool   `yaml:"debug" env:"DEBUG"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl" env:"QUIZ_TTL"`
	} `yaml:"quiz"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret" env:"JWT_SECRET"`
	} `yaml:"auth"`
	Session struct {
		Countdown        string `yaml:"countdown" env:"SESSION_COUNTDOWN"`
		MaxActivePerQuiz int    `yaml:"maxActivePerQuiz" env:"SESSION_MAX_ACTIVE_PER_QUIZ"`
		MaxAutoStart     int    `yaml:"maxAutoStart" env:"SESSION_MAX_AUTO_START"`
		ResultTTL        string `yaml:"resultTTL" env:"SESSION_RESULT_TTL"`
	} `yaml:"session"`
}

// Load reads YAML config from path, then applies environment overrides.
// A .env file in the working directory is loaded first when present.
// A missing config file leaves every value at its zero default.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
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
