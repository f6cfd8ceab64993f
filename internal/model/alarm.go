package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidAlarmKind = errors.New("model: invalid alarm kind")

// AlarmKind is the typed purpose of a scheduled alarm. Purpose travels as a
// structured field, never re-derived by parsing the alarm id.
type AlarmKind string

const (
	// AlarmKindReminder fires ahead of a task's deadline and produces a
	// user-facing notification.
	AlarmKindReminder AlarmKind = "reminder"
	// AlarmKindLinkOpen fires at the deadline itself and opens the task's
	// meeting link, when it has one.
	AlarmKindLinkOpen AlarmKind = "link_open"
	// AlarmKindTabClose fires when a per-tab countdown expires and closes
	// the tab.
	AlarmKindTabClose AlarmKind = "tab_close"
)

func (k AlarmKind) IsValid() bool {
	switch k {
	case AlarmKindReminder, AlarmKindLinkOpen, AlarmKindTabClose:
		return true
	default:
		return false
	}
}

// Alarm is a one-shot timed trigger. Alarms are derived, disposable
// scheduling hints: the store remains the source of truth for task data and
// linkage is re-resolved from it at fire time.
type Alarm struct {
	ID        string
	Kind      AlarmKind
	TaskID    string
	TabID     int
	TriggerAt time.Time
}

func (a Alarm) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("model: alarm id is required")
	}
	if !a.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAlarmKind, a.Kind)
	}
	if a.TriggerAt.IsZero() {
		return errors.New("model: alarm trigger_at is required")
	}
	switch a.Kind {
	case AlarmKindReminder, AlarmKindLinkOpen:
		if strings.TrimSpace(a.TaskID) == "" {
			return errors.New("model: alarm task_id is required")
		}
	case AlarmKindTabClose:
		if a.TabID <= 0 {
			return errors.New("model: alarm tab_id is required")
		}
	}
	return nil
}

// Deterministic alarm ids: replanning the same task (or restarting the same
// tab timer) replaces the previous alarm instead of duplicating it.

func ReminderAlarmID(taskID string) string {
	return "reminder-" + taskID
}

func LinkOpenAlarmID(taskID string) string {
	return "open-" + taskID
}

func TabCloseAlarmID(tabID int) string {
	return fmt.Sprintf("tabclose-%d", tabID)
}
