package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"medorder/backend/internal/domain"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	DBAutoMigrate         bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AuthSecret            string
	AccessTokenTTLMinutes int
	LogLevel              string
	AppEnv                string
	GatewayURL            string
	GatewayAPIKey         string
	GatewayTimeout        time.Duration
	ExportDir             string
	DraftTTL              time.Duration
	SessionTTL            time.Duration
	Download              DownloadConfig
	Company               domain.CompanyInfo
}

type DownloadConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Timeout     time.Duration `yaml:"timeout"`
}

// fileConfig is the optional YAML document named by CONFIG_FILE.
type fileConfig struct {
	Company   domain.CompanyInfo `yaml:"company"`
	Download  DownloadConfig     `yaml:"download"`
	ExportDir string             `yaml:"export_dir"`
}

// Load reads defaults, then the optional CONFIG_FILE, then environment
// variables. Later sources win.
func Load() (Config, error) {
	cfg := Config{
		Download:  DownloadConfig{MaxAttempts: 3, RetryDelay: time.Second, Timeout: 30 * time.Second},
		Company:   domain.CompanyInfo{Name: "MedOrder Supply"},
		ExportDir: "exports",
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	cfg.Port = getEnv("PORT", "8080")
	cfg.AllowedOrigin = getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.DBAutoMigrate = getBool("DB_AUTO_MIGRATE", false)
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = redisDB
	cfg.AuthSecret = strings.TrimSpace(os.Getenv("AUTH_SECRET"))
	cfg.AccessTokenTTLMinutes = tokenTTL
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.AppEnv = getEnv("APP_ENV", "production")
	cfg.GatewayURL = strings.TrimSpace(os.Getenv("GATEWAY_URL"))
	cfg.GatewayAPIKey = strings.TrimSpace(os.Getenv("GATEWAY_API_KEY"))
	cfg.GatewayTimeout = getDuration("GATEWAY_TIMEOUT", 15*time.Second)
	cfg.ExportDir = getEnv("EXPORT_DIR", cfg.ExportDir)
	cfg.DraftTTL = getDuration("DRAFT_TTL", 24*time.Hour)
	cfg.SessionTTL = getDuration("WIZARD_SESSION_TTL", 2*time.Hour)

	if v, err := strconv.Atoi(os.Getenv("DOWNLOAD_MAX_ATTEMPTS")); err == nil && v > 0 {
		cfg.Download.MaxAttempts = v
	}
	cfg.Download.RetryDelay = getDuration("DOWNLOAD_RETRY_DELAY", cfg.Download.RetryDelay)
	cfg.Download.Timeout = getDuration("DOWNLOAD_TIMEOUT", cfg.Download.Timeout)
	if cfg.Download.MaxAttempts < 1 {
		cfg.Download.MaxAttempts = 1
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.Company.Name != "" {
		c.Company = fc.Company
	}
	if fc.Download.MaxAttempts > 0 {
		c.Download.MaxAttempts = fc.Download.MaxAttempts
	}
	if fc.Download.RetryDelay > 0 {
		c.Download.RetryDelay = fc.Download.RetryDelay
	}
	if fc.Download.Timeout > 0 {
		c.Download.Timeout = fc.Download.Timeout
	}
	if fc.ExportDir != "" {
		c.ExportDir = fc.ExportDir
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}
