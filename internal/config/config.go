// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/dukerupert/reloop/internal/backup"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const Prefix = "RELOOP"

// Config is read from RELOOP_* variables, e.g. RELOOP_PORT, RELOOP_DB_PATH.
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	DBPath   string `envconfig:"DB_PATH" default:"reloop.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	BaseURL  string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	// AllowedOrigins are host patterns accepted on websocket upgrades.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`

	JWTSecret  string        `envconfig:"JWT_SECRET"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	// RedisAddr enables the Redis points feed; empty keeps it in-process.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`

	QuizPerMinute float64 `envconfig:"QUIZ_PER_MINUTE" default:"2"`
	QuizBurst     int     `envconfig:"QUIZ_BURST" default:"3"`

	VAPIDPublicKey  string        `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDSubscriber string        `envconfig:"VAPID_SUBSCRIBER" default:"mailto:support@reloop.app"`
	ReminderEvery   time.Duration `envconfig:"REMINDER_INTERVAL" default:"5m"`

	PostmarkToken string `envconfig:"POSTMARK_TOKEN"`
	EmailFrom     string `envconfig:"EMAIL_FROM" default:"Reloop <noreply@reloop.app>"`

	Backup BackupConfig `envconfig:"BACKUP"`

	SeedFile string `envconfig:"SEED_FILE"`
}

type BackupConfig struct {
	S3Endpoint    string `envconfig:"S3_ENDPOINT"`
	S3Bucket      string `envconfig:"S3_BUCKET"`
	S3Region      string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey   string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey   string `envconfig:"S3_SECRET_KEY"`
	S3Prefix      string `envconfig:"S3_PREFIX"`
	Passphrase    string `envconfig:"PASSPHRASE"`
	ScheduleHour  int    `envconfig:"SCHEDULE_HOUR" default:"-1"`
	RetentionDays int    `envconfig:"RETENTION_DAYS" default:"30"`
}

// Load reads an optional .env file from the working directory and then the
// environment. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return FromEnv()
}

// LoadTool is Load for operator commands, which never sign tokens and so do
// not require RELOOP_JWT_SECRET.
func LoadTool() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := process()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateShared(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func process() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return &cfg, nil
}

// FromEnv processes RELOOP_* variables without touching .env.
func FromEnv() (*Config, error) {
	cfg, err := process()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("%s_JWT_SECRET must be at least 32 characters", Prefix)
	}
	return c.validateShared()
}

func (c *Config) validateShared() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%s_SESSION_TTL must be positive", Prefix)
	}
	if c.QuizPerMinute <= 0 || c.QuizBurst <= 0 {
		return fmt.Errorf("%s_QUIZ_PER_MINUTE and %s_QUIZ_BURST must be positive", Prefix, Prefix)
	}
	if c.Backup.ScheduleHour > 23 {
		return fmt.Errorf("%s_BACKUP_SCHEDULE_HOUR must be between 0 and 23, or negative to disable", Prefix)
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		return fmt.Errorf("set both %s_VAPID_PUBLIC_KEY and %s_VAPID_PRIVATE_KEY or neither", Prefix, Prefix)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}

// SecureCookies reports whether session cookies should carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

// BackupSettings converts the RELOOP_BACKUP_* variables for the backup manager.
func (c *Config) BackupSettings() backup.Config {
	b := c.Backup
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  b.S3Endpoint,
			Bucket:    b.S3Bucket,
			Region:    b.S3Region,
			AccessKey: b.S3AccessKey,
			SecretKey: b.S3SecretKey,
			Prefix:    b.S3Prefix,
		},
		Passphrase:    b.Passphrase,
		ScheduleHour:  b.ScheduleHour,
		RetentionDays: b.RetentionDays,
	}
}
