package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tbxark/civicdesk/objectstore"
)

type Config struct {
	LogLevel string         `json:"log_level" yaml:"log_level"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Session  SessionConfig  `json:"session" yaml:"session"`
	LLM      LLMConfig      `json:"llm" yaml:"llm"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Auth     AuthConfig     `json:"auth" yaml:"auth"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
	// RateLimit is the sustained chat requests per second allowed per client IP.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `json:"rate_burst" yaml:"rate_burst"`
}

type DatabaseConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

type SessionConfig struct {
	Backend       string   `json:"backend" yaml:"backend"`
	TTL           Duration `json:"ttl" yaml:"ttl"`
	RedisAddr     string   `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string   `json:"redis_password" yaml:"redis_password"`
	RedisDB       int      `json:"redis_db" yaml:"redis_db"`
}

type LLMConfig struct {
	Provider string   `json:"provider" yaml:"provider"`
	APIKey   string   `json:"api_key" yaml:"api_key"`
	BaseURL  string   `json:"base_url" yaml:"base_url"`
	Model    string   `json:"model" yaml:"model"`
	Lang     string   `json:"lang" yaml:"lang"`
	Timeout  Duration `json:"timeout" yaml:"timeout"`
}

type StorageConfig struct {
	objectstore.Config `yaml:",inline"`
	URLTTL             Duration `json:"url_ttl" yaml:"url_ttl"`
}

type AuthConfig struct {
	JWTSecret string   `json:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL  Duration `json:"token_ttl" yaml:"token_ttl"`
	// StaffInviteCode gates self-registration of staff accounts.
	StaffInviteCode string `json:"staff_invite_code" yaml:"staff_invite_code"`
}

type TelegramConfig struct {
	Token string `json:"token" yaml:"token"`
	// Flow is "certificate" or "complaint".
	Flow string `json:"flow" yaml:"flow"`
}

const (
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server:   ServerConfig{Addr: ":8080", RateLimit: 2, RateBurst: 10},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "civicdesk.db"},
		Session:  SessionConfig{Backend: SessionMemory, TTL: Duration(30 * time.Minute)},
		LLM:      LLMConfig{Provider: ProviderLocal, Lang: "English", Timeout: Duration(10 * time.Second)},
		Storage: StorageConfig{
			Config: objectstore.Config{Backend: objectstore.BackendLocal, Dir: "data"},
			URLTTL: Duration(time.Hour),
		},
		Auth:     AuthConfig{TokenTTL: Duration(24 * time.Hour)},
		Telegram: TelegramConfig{Flow: "certificate"},
	}
}

// Load reads path over the defaults, then applies environment overrides. An
// empty path skips the file. Files ending in .yaml or .yml are YAML, anything
// else is JSON.
func Load(path string) (*Config, error) {
	conf := Default()
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(file, conf)
		default:
			err = json.Unmarshal(file, conf)
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyEnv(conf, os.LookupEnv)
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	switch c.Session.Backend {
	case SessionMemory:
	case SessionRedis:
		if c.Session.RedisAddr == "" {
			errs = append(errs, errors.New("session.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("session.backend must be memory or redis, got %q", c.Session.Backend))
	}
	switch c.LLM.Provider {
	case ProviderLocal:
	case ProviderOpenAI, ProviderGemini:
		if c.LLM.APIKey == "" {
			errs = append(errs, fmt.Errorf("llm.api_key is required for provider %s", c.LLM.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("llm.provider must be local, openai or gemini, got %q", c.LLM.Provider))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// applyEnv overrides file values with CIVICDESK_* variables and the platform
// PORT and DATABASE_URL variables.
func applyEnv(c *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("CIVICDESK_LOG_LEVEL", &c.LogLevel)
	str("CIVICDESK_ADDR", &c.Server.Addr)
	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		c.Server.Addr = ":" + strings.TrimSpace(v)
	}
	str("CIVICDESK_DB_DRIVER", &c.Database.Driver)
	str("CIVICDESK_DB_DSN", &c.Database.DSN)
	if v, ok := lookup("DATABASE_URL"); ok && strings.TrimSpace(v) != "" {
		c.Database.DSN = strings.TrimSpace(v)
		if strings.HasPrefix(c.Database.DSN, "postgres") {
			c.Database.Driver = "postgres"
		}
	}
	str("CIVICDESK_SESSION_BACKEND", &c.Session.Backend)
	str("CIVICDESK_REDIS_ADDR", &c.Session.RedisAddr)
	str("CIVICDESK_REDIS_PASSWORD", &c.Session.RedisPassword)
	str("CIVICDESK_LLM_PROVIDER", &c.LLM.Provider)
	str("CIVICDESK_LLM_API_KEY", &c.LLM.APIKey)
	str("CIVICDESK_LLM_BASE_URL", &c.LLM.BaseURL)
	str("CIVICDESK_LLM_MODEL", &c.LLM.Model)
	str("CIVICDESK_STORAGE_BACKEND", (*string)(&c.Storage.Backend))
	str("CIVICDESK_STORAGE_BUCKET", &c.Storage.Bucket)
	str("CIVICDESK_STORAGE_DIR", &c.Storage.Dir)
	str("CIVICDESK_STORAGE_SECRET", &c.Storage.Secret)
	str("CIVICDESK_JWT_SECRET", &c.Auth.JWTSecret)
	str("CIVICDESK_STAFF_INVITE_CODE", &c.Auth.StaffInviteCode)
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.Token)
}
