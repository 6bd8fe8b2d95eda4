package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Dev struct {
		Mode bool `yaml:"mode"`
	} `yaml:"dev"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	SMTP SMTPConfig `yaml:"smtp"`
	AI   struct {
		APIKey        string        `yaml:"api_key"`
		BaseURL       string        `yaml:"base_url"`
		Model         string        `yaml:"model"`
		ChatModel     string        `yaml:"chat_model"`
		CacheTTL      time.Duration `yaml:"cache_ttl"`
		CacheCapacity int           `yaml:"cache_capacity"`
	} `yaml:"ai"`
	Chat struct {
		RatePerMinute int `yaml:"rate_per_minute"`
	} `yaml:"chat"`
	Security struct {
		TokenSigningKey string        `yaml:"token_signing_key"`
		TokenTTL        time.Duration `yaml:"token_ttl"`
	} `yaml:"security"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func Default() Config {
	var cfg Config
	cfg.HTTP.Addr = ":8090"
	cfg.Dev.Mode = true
	cfg.Redis.URL = "redis://localhost:6379"
	cfg.SMTP.Port = 2525
	cfg.SMTP.From = "noreply@janata.gov.in"
	cfg.AI.Model = "gpt-3.5-turbo"
	cfg.AI.ChatModel = "gpt-4o-mini"
	cfg.AI.CacheTTL = 5 * time.Minute
	cfg.AI.CacheCapacity = 1000
	cfg.Chat.RatePerMinute = 20
	cfg.Security.TokenTTL = 7 * 24 * time.Hour
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("JP_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("JP_DEV_MODE"); v != "" {
		cfg.Dev.Mode = parseBool(v, cfg.Dev.Mode)
	}
	if v := os.Getenv("JP_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JP_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("JP_SMTP_HOST"); v != "" {
		cfg.SMTP.Host = v
	}
	if v := os.Getenv("JP_SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.SMTP.Port = p
		}
	}
	if v := os.Getenv("JP_SMTP_USERNAME"); v != "" {
		cfg.SMTP.Username = v
	}
	if v := os.Getenv("JP_SMTP_PASSWORD"); v != "" {
		cfg.SMTP.Password = v
	}
	if v := os.Getenv("JP_SMTP_FROM"); v != "" {
		cfg.SMTP.From = v
	}
	if v := os.Getenv("JP_OPENAI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("JP_OPENAI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := os.Getenv("JP_AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("JP_AI_CHAT_MODEL"); v != "" {
		cfg.AI.ChatModel = v
	}
	if v := os.Getenv("JP_AI_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.AI.CacheTTL = d
		}
	}
	if v := os.Getenv("JP_AI_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AI.CacheCapacity = n
		}
	}
	if v := os.Getenv("JP_CHAT_RATE_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chat.RatePerMinute = n
		}
	}
	if v := os.Getenv("JP_TOKEN_SIGNING_KEY"); v != "" {
		cfg.Security.TokenSigningKey = v
	}
	if v := os.Getenv("JP_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Security.TokenTTL = d
		}
	}
}

func parseBool(input string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
