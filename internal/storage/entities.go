package storage

import "time"

type Task struct {
	ID        string
	Name      string
	Time      time.Time
	Link      string
	Completed bool
	EventID   string
	CreatedAt time.Time
}

// AlarmRecord is the persisted mapping from an alarm id to its structured
// purpose. It is what survives a process restart: pending records are
// reloaded into the trigger engine at startup.
type AlarmRecord struct {
	ID        string
	Kind      string
	TaskID    string
	TabID     int
	TriggerAt time.Time
	CreatedAt time.Time
}

type TabTimer struct {
	TabID     int
	AlarmID   string
	EndAt     time.Time
	CreatedAt time.Time
}

// ClosedTab is the single-slot record of the last tab a timer closed.
type ClosedTab struct {
	URL      string
	Title    string
	ClosedAt time.Time
}

type TaskListFilter struct {
	Completed *bool
	EventID   string
	Limit     int
	Offset    int
}

type AlarmListFilter struct {
	Kind   string
	TaskID string
	Limit  int
	Offset int
}
