package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the engine.
type Config struct {
	DatabaseURL          string
	TelegramToken        string // optional; reminder delivery is disabled when empty
	ReminderScanInterval time.Duration
	ReminderWindow       time.Duration
	CleanupDays          int    // 0 disables retention cleanup
	CleanupTime          string // HH:MM, local time
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
		TelegramToken:        strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		ReminderScanInterval: parseDuration(os.Getenv("REMINDER_SCAN_INTERVAL")),
		ReminderWindow:       parseDuration(os.Getenv("REMINDER_WINDOW")),
		CleanupDays:          parseInt(os.Getenv("CLEANUP_DAYS")),
		CleanupTime:          strings.TrimSpace(os.Getenv("CLEANUP_TIME")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "taskhub.db"
	}
	if cfg.ReminderScanInterval == 0 {
		cfg.ReminderScanInterval = time.Minute
	}
	if cfg.ReminderWindow == 0 {
		cfg.ReminderWindow = 5 * time.Minute
	}
	if cfg.CleanupTime == "" {
		cfg.CleanupTime = "03:30"
	}
	if cfg.CleanupDays < 0 {
		return cfg, fmt.Errorf("CLEANUP_DAYS must be non-negative")
	}

	return cfg, nil
}

func parseDuration(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

func parseInt(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
