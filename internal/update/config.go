package update

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type RuntimeConfig struct {
	DatabasePath         string
	DesktopNotifications bool
	ReminderLeadMinutes  int
	SyncIntervalMinutes  int
	SchedulerBuffer      int
	GeminiAPIKey         string
	TabGetCommand        string
	TabCloseCommand      string
	TabOpenCommand       string
}

func DefaultRuntimeConfig() RuntimeConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return RuntimeConfig{
		DatabasePath:         filepath.Join(home, ".config", "tabmind", "tabmind.db"),
		DesktopNotifications: true,
		ReminderLeadMinutes:  2,
		SyncIntervalMinutes:  3,
		SchedulerBuffer:      64,
	}
}

func RuntimeConfigFromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v := strings.TrimSpace(os.Getenv("TABMIND_DB_PATH")); v != "" {
		cfg.DatabasePath = v
	}
	if v, ok := getEnvBool("TABMIND_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvInt("TABMIND_REMINDER_LEAD_MINUTES"); ok && v > 0 {
		cfg.ReminderLeadMinutes = v
	}
	if v, ok := getEnvInt("TABMIND_SYNC_INTERVAL_MINUTES"); ok && v > 0 {
		cfg.SyncIntervalMinutes = v
	}
	if v, ok := getEnvInt("TABMIND_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v := strings.TrimSpace(os.Getenv("TABMIND_GEMINI_API_KEY")); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("TABMIND_TAB_GET_COMMAND")); v != "" {
		cfg.TabGetCommand = v
	}
	if v := strings.TrimSpace(os.Getenv("TABMIND_TAB_CLOSE_COMMAND")); v != "" {
		cfg.TabCloseCommand = v
	}
	if v := strings.TrimSpace(os.Getenv("TABMIND_TAB_OPEN_COMMAND")); v != "" {
		cfg.TabOpenCommand = v
	}
	return cfg
}

func (c RuntimeConfig) ReminderLead() time.Duration {
	return time.Duration(c.ReminderLeadMinutes) * time.Minute
}

func (c RuntimeConfig) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMinutes) * time.Minute
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
