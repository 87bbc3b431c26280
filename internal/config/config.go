package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ReadReceiptMode string

const (
	ReadReceiptTargeted  ReadReceiptMode = "targeted"
	ReadReceiptBroadcast ReadReceiptMode = "broadcast"
)

const maxHistoryLimit = 100

type Config struct {
	Port            string          `yaml:"port"`
	DatabaseURL     string          `yaml:"database_url"`
	RedisURL        string          `yaml:"redis_url"`
	JWTSecret       string          `yaml:"jwt_secret"`
	TokenTTL        time.Duration   `yaml:"token_ttl"`
	UploadDir       string          `yaml:"upload_dir"`
	MaxUploadBytes  int64           `yaml:"max_upload_bytes"`
	LogLevel        string          `yaml:"log_level"`
	ReadReceiptMode ReadReceiptMode `yaml:"read_receipt_mode"`
	WSRateRPS       float64         `yaml:"ws_rate_rps"`
	WSRateBurst     int             `yaml:"ws_rate_burst"`
	HistoryLimit    int             `yaml:"history_limit"`
	// AllowedOrigins lists the browser origins accepted on /ws. Empty means
	// same-origin only; "*" accepts any origin.
	AllowedOrigins  []string        `yaml:"allowed_origins"`
}

func Default() Config {
	return Config{
		Port:            "8080",
		TokenTTL:        24 * time.Hour,
		UploadDir:       "./uploads",
		MaxUploadBytes:  10 * 1024 * 1024,
		LogLevel:        "info",
		ReadReceiptMode: ReadReceiptTargeted,
		WSRateRPS:       10,
		WSRateBurst:     20,
		HistoryLimit:    50,
	}
}

// Load reads .env.local / .env, an optional YAML file named by CHAT_CONFIG and
// finally the process environment, in increasing order of precedence.
func Load() (Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	cfg := Default()
	if path := os.Getenv("CHAT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_URL", &c.RedisURL)
	str("JWT_SECRET", &c.JWTSecret)
	str("UPLOAD_DIR", &c.UploadDir)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("READ_RECEIPT_MODE"); ok && v != "" {
		c.ReadReceiptMode = ReadReceiptMode(strings.ToLower(v))
	}
	if v, ok := lookup("TOKEN_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
		c.TokenTTL = d
	}
	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok && v != "" {
		// accepts "10485760" as well as "10MB" or "10 MiB"
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = int64(n)
	}
	if v, ok := lookup("WS_RATE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("WS_RATE_RPS: %w", err)
		}
		c.WSRateRPS = f
	}
	if v, ok := lookup("WS_RATE_BURST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WS_RATE_BURST: %w", err)
		}
		c.WSRateBurst = n
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		c.AllowedOrigins = c.AllowedOrigins[:0]
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, origin)
			}
		}
	}
	if v, ok := lookup("HISTORY_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HISTORY_LIMIT: %w", err)
		}
		c.HistoryLimit = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	switch c.ReadReceiptMode {
	case ReadReceiptTargeted, ReadReceiptBroadcast:
	default:
		return fmt.Errorf("READ_RECEIPT_MODE must be %q or %q, got %q",
			ReadReceiptTargeted, ReadReceiptBroadcast, c.ReadReceiptMode)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.WSRateRPS <= 0 || c.WSRateBurst <= 0 {
		return errors.New("WS_RATE_RPS and WS_RATE_BURST must be positive")
	}
	if c.HistoryLimit <= 0 || c.HistoryLimit > maxHistoryLimit {
		return fmt.Errorf("HISTORY_LIMIT must be between 1 and %d", maxHistoryLimit)
	}
	return nil
}
