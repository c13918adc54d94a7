// Package config loads application settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Defaults used when the corresponding variable is not set.
const (
	DefaultDBType                = "sqlite"
	DefaultSQLitePath            = "data/vocabsrs.db"
	DefaultNotificationStartHour = 4
	DefaultNotificationEndHour   = 18
	DefaultWordsPerBatch         = 10
	DefaultSessionSize           = 20
)

// Config holds the application settings
type Config struct {
	DBType      string `validate:"oneof=sqlite postgres"`
	DatabaseURL string `validate:"required"`

	TelegramToken string
	AdminUserIDs  []int64

	SchedulerEnabled      bool
	NotificationStartHour int `validate:"min=0,max=23"`
	NotificationEndHour   int `validate:"min=0,max=23,gtefield=NotificationStartHour"`

	// Words introduced by one /learn
	WordsPerBatch int `validate:"min=1,max=50"`
	// Cards shown per /review session
	SessionSize int `validate:"min=1,max=50"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=console json"`
}

var validate = validator.New()

// Load reads the given .env files (default ".env"), then the process
// environment. Missing .env files are ignored; variables already set in the
// environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		DBType:           getString("DB_TYPE", DefaultDBType),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		SchedulerEnabled: os.Getenv("ENABLE_SCHEDULER") != "false",
		LogLevel:         getString("LOG_LEVEL", "info"),
		LogFormat:        getString("LOG_FORMAT", "console"),
	}
	if cfg.DatabaseURL == "" && cfg.DBType == "sqlite" {
		cfg.DatabaseURL = DefaultSQLitePath
	}

	var err error
	if cfg.NotificationStartHour, err = getInt("NOTIFICATION_START_HOUR", DefaultNotificationStartHour); err != nil {
		return nil, err
	}
	if cfg.NotificationEndHour, err = getInt("NOTIFICATION_END_HOUR", DefaultNotificationEndHour); err != nil {
		return nil, err
	}
	if cfg.WordsPerBatch, err = getInt("WORDS_PER_BATCH", DefaultWordsPerBatch); err != nil {
		return nil, err
	}
	if cfg.SessionSize, err = getInt("SESSION_SIZE", DefaultSessionSize); err != nil {
		return nil, err
	}
	if cfg.AdminUserIDs, err = parseIDs(os.Getenv("ADMIN_USER_IDS")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings against their struct constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RequireBot reports an error if the bot cannot be started with c.
func (c *Config) RequireBot() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	return nil
}

// IsAdmin reports whether userID is listed in ADMIN_USER_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return n, nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_USER_IDS: invalid user ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
