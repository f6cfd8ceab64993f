package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: not found")

// Repository is the durable store shared by the planner, the reconciler and
// the UI. All mutations flow through a single writer; callers never see the
// whole-collection read/modify/write cycle of the original design.
type Repository interface {
	UpsertTask(ctx context.Context, in Task) error
	UpsertTaskByEventID(ctx context.Context, in Task) (Task, error)
	GetTask(ctx context.Context, id string) (Task, error)
	SetTaskEventID(ctx context.Context, id, eventID string) error
	SetTaskCompleted(ctx context.Context, id string, completed bool) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error)
	PurgeCompletedTasks(ctx context.Context) ([]Task, error)

	PutAlarm(ctx context.Context, in AlarmRecord) error
	GetAlarm(ctx context.Context, id string) (AlarmRecord, error)
	DeleteAlarm(ctx context.Context, id string) error
	ListAlarms(ctx context.Context, filter AlarmListFilter) ([]AlarmRecord, error)

	PutTabTimer(ctx context.Context, in TabTimer) error
	GetTabTimer(ctx context.Context, tabID int) (TabTimer, error)
	DeleteTabTimer(ctx context.Context, tabID int) error
	ListTabTimers(ctx context.Context) ([]TabTimer, error)

	SetClosedTab(ctx context.Context, in ClosedTab) error
	GetClosedTab(ctx context.Context) (ClosedTab, error)
	ClearClosedTab(ctx context.Context) error
}
