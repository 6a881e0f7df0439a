package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int      `yaml:"port"`
		CORSOrigins     []string `yaml:"corsOrigins"`
		ReadTimeoutSec  int      `yaml:"readTimeoutSec"`
		WriteTimeoutSec int      `yaml:"writeTimeoutSec"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | pgx | sqlite
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		DSN      string `yaml:"dsn"`
		Path     string `yaml:"path"` // sqlite file
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTLHours int    `yaml:"ttlHours"`
	} `yaml:"redis"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Auth struct {
		TokenTTLHours   int    `yaml:"tokenTTLHours"`
		ResetTTLMinutes int    `yaml:"resetTTLMinutes"`
		PublicURL       string `yaml:"publicURL"`
		SuccessRedirect string `yaml:"successRedirect"`
		ResetURL        string `yaml:"resetURL"`
		GitHub          struct {
			ClientID     string `yaml:"clientID"`
			ClientSecret string `yaml:"clientSecret"`
			RedirectURL  string `yaml:"redirectURL"`
		} `yaml:"github"`
	} `yaml:"auth"`

	AI struct {
		OpenAIModel      string `yaml:"openaiModel"`
		OpenAIBaseURL    string `yaml:"openaiBaseURL"`
		AnthropicModel   string `yaml:"anthropicModel"`
		AnthropicBaseURL string `yaml:"anthropicBaseURL"`
		OllamaModel      string `yaml:"ollamaModel"`
		TimeoutSec       int    `yaml:"timeoutSec"`
		// AnalyzeTimeoutSec bounds a whole analysis, retries included.
		AnalyzeTimeoutSec int  `yaml:"analyzeTimeoutSec"`
		MaxCodeBytes      int  `yaml:"maxCodeBytes"`
		SecretScan        bool `yaml:"secretScan"`
		FreeMonthly       int  `yaml:"freeMonthly"`
	} `yaml:"ai"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Load baca file config.yaml, apply env overrides and defaults.
// A missing file is not an error; env + defaults must then be enough.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	cfg.applyEnv()
	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a config usable for local development (sqlite, no cache, no storage).
func Defaults() *Config {
	c := &Config{}
	c.Server.Port = 8080
	c.Server.ReadTimeoutSec = 15
	c.Server.WriteTimeoutSec = 120
	c.Database.Driver = "sqlite"
	c.Database.Path = "./data/neurolint.db"
	c.Redis.TTLHours = 24
	c.Minio.BucketName = "neurolint-reports"
	c.Auth.TokenTTLHours = 720
	c.Auth.ResetTTLMinutes = 60
	c.AI.OpenAIModel = "gpt-4-turbo-preview"
	c.AI.AnthropicModel = "claude-3-opus-20240229"
	c.AI.OllamaModel = "codellama"
	c.AI.TimeoutSec = 60
	c.AI.MaxCodeBytes = 200 * 1024
	c.AI.SecretScan = true
	c.AI.FreeMonthly = 10
	c.RateLimit.Capacity = 30
	c.RateLimit.RefillRate = 1
	c.Log.Level = "info"
	return c
}

// fill restores defaults for zero values left by a sparse yaml file.
func (c *Config) fill() {
	d := Defaults()
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = d.Server.ReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = d.Server.WriteTimeoutSec
	}
	if c.Database.Driver == "" {
		c.Database.Driver = d.Database.Driver
	}
	if c.Redis.TTLHours <= 0 {
		c.Redis.TTLHours = d.Redis.TTLHours
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = d.Auth.TokenTTLHours
	}
	if c.Auth.ResetTTLMinutes <= 0 {
		c.Auth.ResetTTLMinutes = d.Auth.ResetTTLMinutes
	}
	if c.AI.OpenAIModel == "" {
		c.AI.OpenAIModel = d.AI.OpenAIModel
	}
	if c.AI.AnthropicModel == "" {
		c.AI.AnthropicModel = d.AI.AnthropicModel
	}
	if c.AI.OllamaModel == "" {
		c.AI.OllamaModel = d.AI.OllamaModel
	}
	if c.AI.TimeoutSec <= 0 {
		c.AI.TimeoutSec = d.AI.TimeoutSec
	}
	if c.AI.AnalyzeTimeoutSec <= 0 {
		c.AI.AnalyzeTimeoutSec = max(c.Server.WriteTimeoutSec-10, c.Server.WriteTimeoutSec/2)
	}
	if base := frontendBase(c.Auth.SuccessRedirect, c.Auth.PublicURL); c.Auth.ResetURL == "" && base != "" {
		c.Auth.ResetURL = base + "/reset-password"
	}
	if c.AI.MaxCodeBytes <= 0 {
		c.AI.MaxCodeBytes = d.AI.MaxCodeBytes
	}
	if c.RateLimit.Capacity <= 0 {
		c.RateLimit.Capacity = d.RateLimit.Capacity
	}
	if c.RateLimit.RefillRate <= 0 {
		c.RateLimit.RefillRate = d.RateLimit.RefillRate
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvInt("NEUROLINT_PORT", c.Server.Port)
	if v := os.Getenv("NEUROLINT_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	c.Database.Driver = getEnv("NEUROLINT_DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("NEUROLINT_DATABASE_URL", c.Database.DSN)
	c.Database.Path = getEnv("NEUROLINT_DB_PATH", c.Database.Path)
	c.Database.Password = getEnv("NEUROLINT_DB_PASSWORD", c.Database.Password)
	c.Redis.Addr = getEnv("NEUROLINT_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("NEUROLINT_REDIS_PASSWORD", c.Redis.Password)
	c.Minio.Endpoint = getEnv("NEUROLINT_MINIO_ENDPOINT", c.Minio.Endpoint)
	c.Minio.AccessKey = getEnv("NEUROLINT_MINIO_ACCESS_KEY", c.Minio.AccessKey)
	c.Minio.SecretKey = getEnv("NEUROLINT_MINIO_SECRET_KEY", c.Minio.SecretKey)
	c.Auth.GitHub.ClientID = getEnv("NEUROLINT_GITHUB_CLIENT_ID", c.Auth.GitHub.ClientID)
	c.Auth.GitHub.ClientSecret = getEnv("NEUROLINT_GITHUB_CLIENT_SECRET", c.Auth.GitHub.ClientSecret)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// Validate rejects configs the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case "mysql", "postgres", "pgx":
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("database.host or database.dsn is required for %s", c.Database.Driver)
		}
		if c.Database.Driver == "mysql" && c.Database.DSN != "" {
			if _, err := mysql.ParseDSN(c.Database.DSN); err != nil {
				return fmt.Errorf("invalid database.dsn: %w", err)
			}
		}
	default:
		return fmt.Errorf("unsupported database.driver: %s", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Minio.Endpoint != "" && (c.Minio.AccessKey == "" || c.Minio.SecretKey == "") {
		return errors.New("minio.accessKey and minio.secretKey are required when minio.endpoint is set")
	}
	if c.AI.AnalyzeTimeoutSec >= c.Server.WriteTimeoutSec {
		return fmt.Errorf("ai.analyzeTimeoutSec (%d) must be below server.writeTimeoutSec (%d)", c.AI.AnalyzeTimeoutSec, c.Server.WriteTimeoutSec)
	}
	return nil
}

// Helper untuk build DSN MySQL. A user DSN keeps its own settings but always
// gets parseTime, UTC and found-rows semantics, which the store relies on.
func (c *Config) MySQLDSN() string {
	if c.Database.DSN != "" {
		mc, err := mysql.ParseDSN(c.Database.DSN)
		if err != nil {
			return c.Database.DSN
		}
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.ClientFoundRows = true
		return mc.FormatDSN()
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC&clientFoundRows=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a libpq style URL.
func (c *Config) PostgresDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		ssl,
	)
}

// CacheTTL is the redis entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLHours) * time.Hour
}

// AITimeout bounds a single provider call.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSec) * time.Second
}

// AnalyzeTimeout bounds one analysis request end to end.
func (c *Config) AnalyzeTimeout() time.Duration {
	return time.Duration(c.AI.AnalyzeTimeoutSec) * time.Second
}

// frontendBase is the origin of the first non-empty URL.
func frontendBase(urls ...string) string {
	for _, raw := range urls {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		return u.Scheme + "://" + u.Host
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
