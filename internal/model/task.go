package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidLink = errors.New("model: invalid task link")

// Task is a user-scheduled item with a deadline, an optional meeting link and
// an optional linkage to a Google Calendar event.
type Task struct {
	ID        string
	Name      string
	Time      time.Time
	Link      string
	Completed bool
	// EventID is set once the task has been pushed to or pulled from the
	// remote calendar. At most one task per event id exists in the store.
	EventID   string
	CreatedAt time.Time
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("model: task name is required")
	}
	if t.Time.IsZero() {
		return errors.New("model: task time is required")
	}
	if t.Link != "" {
		u, err := url.Parse(t.Link)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidLink, t.Link)
		}
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: task created_at is required")
	}
	return nil
}

func (t Task) HasLink() bool {
	return strings.TrimSpace(t.Link) != ""
}

// NewTaskID mints an id for a locally created task. Ids are never reused
// within a process lifetime.
func NewTaskID() string {
	return "task-" + uuid.NewString()
}

// TaskIDForEvent derives the synthetic local id for a task pulled from the
// remote calendar. The mapping is deterministic so repeated pulls of the
// same event converge on the same record.
func TaskIDForEvent(eventID string) string {
	return "task-evt-" + eventID
}
