package update

import (
	"testing"
	"time"
)

func TestRuntimeConfigDefaults(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	if cfg.ReminderLeadMinutes != 2 || cfg.SyncIntervalMinutes != 3 {
		t.Fatalf("unexpected scheduling defaults: %+v", cfg)
	}
	if cfg.SchedulerBuffer != 64 {
		t.Fatalf("unexpected scheduler buffer: %+v", cfg)
	}
	if !cfg.DesktopNotifications {
		t.Fatal("expected desktop notifications on by default")
	}
	if cfg.DatabasePath == "" {
		t.Fatal("expected a default database path")
	}
}

func TestRuntimeConfigFromEnv(t *testing.T) {
	t.Setenv("TABMIND_DB_PATH", "/tmp/custom.db")
	t.Setenv("TABMIND_DESKTOP_NOTIFICATIONS", "false")
	t.Setenv("TABMIND_REMINDER_LEAD_MINUTES", "5")
	t.Setenv("TABMIND_SYNC_INTERVAL_MINUTES", "10")
	t.Setenv("TABMIND_SCHEDULER_BUFFER", "128")
	t.Setenv("TABMIND_GEMINI_API_KEY", "test-key")
	t.Setenv("TABMIND_TAB_GET_COMMAND", "tabctl get")

	cfg := RuntimeConfigFromEnv(DefaultRuntimeConfig())
	if cfg.DatabasePath != "/tmp/custom.db" {
		t.Fatalf("unexpected db path: %+v", cfg)
	}
	if cfg.DesktopNotifications {
		t.Fatal("expected desktop notifications off from env")
	}
	if cfg.ReminderLeadMinutes != 5 || cfg.SyncIntervalMinutes != 10 {
		t.Fatalf("unexpected scheduling overrides: %+v", cfg)
	}
	if cfg.SchedulerBuffer != 128 || cfg.GeminiAPIKey != "test-key" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.TabGetCommand != "tabctl get" {
		t.Fatalf("unexpected tab helper override: %+v", cfg)
	}
}

func TestRuntimeConfigDurations(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	if cfg.ReminderLead() != 2*time.Minute {
		t.Fatalf("reminder lead = %v", cfg.ReminderLead())
	}
	if cfg.SyncInterval() != 3*time.Minute {
		t.Fatalf("sync interval = %v", cfg.SyncInterval())
	}
}
