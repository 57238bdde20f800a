package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DiscordToken    string
	DatabaseURL     string
	SolvedChannelID string // Empty disables the polling monitor
	CommandPrefix   string
	BotOwnerID      string
	AdminRole       string
	PollInterval    time.Duration

	CodeforcesBaseURL  string
	CodeforcesTimeout  time.Duration
	CodeforcesInterval time.Duration // Minimum spacing between API calls

	ReportUTCOffsetHours int

	TelegramToken  string // Optional mirror of solved notices
	TelegramChatID int64

	HTTPAddr    string // Optional health/status server
	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.SolvedChannelID = strings.TrimSpace(os.Getenv("SOLVED_CHANNEL_ID"))
	if cfg.SolvedChannelID != "" {
		if _, err := strconv.ParseUint(cfg.SolvedChannelID, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid SOLVED_CHANNEL_ID: %w", err)
		}
	}

	cfg.CommandPrefix = getEnv("COMMAND_PREFIX", ";")
	cfg.BotOwnerID = strings.TrimSpace(os.Getenv("BOT_OWNER_ID"))
	cfg.AdminRole = getEnv("ADMIN_ROLE", "Admin")

	if cfg.PollInterval, err = parseDurationEnv("POLL_INTERVAL", 60*time.Second); err != nil {
		return nil, err
	}

	cfg.CodeforcesBaseURL = strings.TrimRight(getEnv("CF_API_BASE_URL", "https://codeforces.com"), "/")
	if cfg.CodeforcesTimeout, err = parseDurationEnv("CF_REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.CodeforcesInterval, err = parseDurationEnv("CF_REQUEST_INTERVAL", 100*time.Millisecond); err != nil {
		return nil, err
	}

	offsetStr := getEnv("REPORT_UTC_OFFSET_HOURS", "6")
	cfg.ReportUTCOffsetHours, err = strconv.Atoi(offsetStr)
	if err != nil || cfg.ReportUTCOffsetHours < -12 || cfg.ReportUTCOffsetHours > 14 {
		return nil, fmt.Errorf("invalid REPORT_UTC_OFFSET_HOURS: %q", offsetStr)
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN"))
	if chatIDStr := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); chatIDStr != "" {
		cfg.TelegramChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	}
	if (cfg.TelegramToken == "") != (cfg.TelegramChatID == 0) {
		return nil, fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	cfg.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}

// MonitorEnabled reports whether a notification channel is configured.
func (c *AppConfig) MonitorEnabled() bool {
	return c.SolvedChannelID != ""
}

// TelegramMirrorEnabled reports whether solved notices are mirrored to Telegram.
func (c *AppConfig) TelegramMirrorEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}
