package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tabmind-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func parseRFC3339(t *testing.T, value string) time.Time {
	t.Helper()
	out, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return out
}

func TestTaskUpsertGetDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-03-01T09:00:00Z")

	task := Task{
		ID:        "task-1",
		Name:      "Standup",
		Time:      parseRFC3339(t, "2026-03-02T10:00:00Z"),
		Link:      "https://meet.example.com/abc",
		CreatedAt: created,
	}
	if err := repo.UpsertTask(ctx, task); err != nil {
		t.Fatalf("upsert task: %v", err)
	}

	got, err := repo.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Name != task.Name || got.Completed || got.EventID != "" {
		t.Fatalf("unexpected task: %#v", got)
	}
	if !got.Time.Equal(task.Time) {
		t.Fatalf("unexpected time: %v", got.Time)
	}

	task.Name = "Standup (moved)"
	if err := repo.UpsertTask(ctx, task); err != nil {
		t.Fatalf("re-upsert task: %v", err)
	}
	got, err = repo.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Name != "Standup (moved)" {
		t.Fatalf("update not applied: %#v", got)
	}

	if err := repo.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if _, err := repo.GetTask(ctx, task.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteTask(ctx, task.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUpsertTaskByEventIDInsertsThenOverwrites(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-03-01T09:00:00Z")

	pulled := Task{
		ID:        "task-evt-abc",
		Name:      "Design review",
		Time:      parseRFC3339(t, "2026-03-02T11:00:00Z"),
		EventID:   "abc",
		CreatedAt: created,
	}
	stored, err := repo.UpsertTaskByEventID(ctx, pulled)
	if err != nil {
		t.Fatalf("first event upsert: %v", err)
	}
	if stored.ID != "task-evt-abc" || stored.Completed {
		t.Fatalf("unexpected inserted task: %#v", stored)
	}

	// Local completion must survive a second pull of the same event.
	if err := repo.SetTaskCompleted(ctx, stored.ID, true); err != nil {
		t.Fatalf("set completed: %v", err)
	}

	pulled.Name = "Design review (moved)"
	pulled.Time = parseRFC3339(t, "2026-03-02T15:00:00Z")
	pulled.Link = "https://meet.example.com/xyz"
	stored, err = repo.UpsertTaskByEventID(ctx, pulled)
	if err != nil {
		t.Fatalf("second event upsert: %v", err)
	}
	if stored.ID != "task-evt-abc" {
		t.Fatalf("expected same task id, got %q", stored.ID)
	}
	if stored.Name != "Design review (moved)" || stored.Link != "https://meet.example.com/xyz" {
		t.Fatalf("remote fields not applied: %#v", stored)
	}
	if !stored.Completed {
		t.Fatal("completed flag lost on event upsert")
	}

	all, err := repo.ListTasks(ctx, TaskListFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 task after repeated upsert, got %d", len(all))
	}
}

func TestSetTaskEventID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-03-01T09:00:00Z")

	task := Task{ID: "task-1", Name: "Standup", Time: created.Add(time.Hour), CreatedAt: created}
	if err := repo.UpsertTask(ctx, task); err != nil {
		t.Fatalf("upsert task: %v", err)
	}
	if err := repo.SetTaskEventID(ctx, task.ID, "evt-1"); err != nil {
		t.Fatalf("set event id: %v", err)
	}
	got, err := repo.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.EventID != "evt-1" {
		t.Fatalf("event id not attached: %#v", got)
	}
	if err := repo.SetTaskEventID(ctx, "task-missing", "evt-2"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTasksOrdersIncompleteFirstThenByTime(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-03-01T09:00:00Z")

	rows := []Task{
		{ID: "task-late", Name: "Late", Time: created.Add(3 * time.Hour), CreatedAt: created},
		{ID: "task-done", Name: "Done", Time: created.Add(time.Hour), Completed: true, CreatedAt: created},
		{ID: "task-soon", Name: "Soon", Time: created.Add(time.Hour), CreatedAt: created},
	}
	for _, row := range rows {
		if err := repo.UpsertTask(ctx, row); err != nil {
			t.Fatalf("upsert %s: %v", row.ID, err)
		}
	}

	listed, err := repo.ListTasks(ctx, TaskListFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(listed))
	}
	if listed[0].ID != "task-soon" || listed[1].ID != "task-late" || listed[2].ID != "task-done" {
		t.Fatalf("unexpected order: %s, %s, %s", listed[0].ID, listed[1].ID, listed[2].ID)
	}
}

func TestPurgeCompletedTasks(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-03-01T09:00:00Z")

	open := Task{ID: "task-open", Name: "Open", Time: created.Add(time.Hour), CreatedAt: created}
	done := Task{ID: "task-done", Name: "Done", Time: created.Add(time.Hour), Completed: true, EventID: "evt-9", CreatedAt: created}
	for _, row := range []Task{open, done} {
		if err := repo.UpsertTask(ctx, row); err != nil {
			t.Fatalf("upsert %s: %v", row.ID, err)
		}
	}

	purged, err := repo.PurgeCompletedTasks(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if len(purged) != 1 || purged[0].ID != "task-done" || purged[0].EventID != "evt-9" {
		t.Fatalf("unexpected purge result: %#v", purged)
	}

	remaining, err := repo.ListTasks(ctx, TaskListFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "task-open" {
		t.Fatalf("unexpected remaining tasks: %#v", remaining)
	}
}

func TestAlarmRecordRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-03-01T09:00:00Z")

	rec := AlarmRecord{
		ID:        "reminder-task-1",
		Kind:      "reminder",
		TaskID:    "task-1",
		TriggerAt: now.Add(30 * time.Minute),
		CreatedAt: now,
	}
	if err := repo.PutAlarm(ctx, rec); err != nil {
		t.Fatalf("put alarm: %v", err)
	}

	// Replanning writes the same id with a new trigger.
	rec.TriggerAt = now.Add(time.Hour)
	if err := repo.PutAlarm(ctx, rec); err != nil {
		t.Fatalf("replace alarm: %v", err)
	}

	got, err := repo.GetAlarm(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get alarm: %v", err)
	}
	if !got.TriggerAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("replace not applied: %#v", got)
	}

	byTask, err := repo.ListAlarms(ctx, AlarmListFilter{TaskID: "task-1"})
	if err != nil {
		t.Fatalf("list alarms: %v", err)
	}
	if len(byTask) != 1 {
		t.Fatalf("expected 1 alarm, got %d", len(byTask))
	}

	if err := repo.DeleteAlarm(ctx, rec.ID); err != nil {
		t.Fatalf("delete alarm: %v", err)
	}
	if _, err := repo.GetAlarm(ctx, rec.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTabTimerRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-03-01T09:00:00Z")

	timer := TabTimer{TabID: 42, AlarmID: "tabclose-42", EndAt: now.Add(25 * time.Minute), CreatedAt: now}
	if err := repo.PutTabTimer(ctx, timer); err != nil {
		t.Fatalf("put tab timer: %v", err)
	}

	timer.EndAt = now.Add(50 * time.Minute)
	if err := repo.PutTabTimer(ctx, timer); err != nil {
		t.Fatalf("replace tab timer: %v", err)
	}

	got, err := repo.GetTabTimer(ctx, 42)
	if err != nil {
		t.Fatalf("get tab timer: %v", err)
	}
	if !got.EndAt.Equal(now.Add(50 * time.Minute)) {
		t.Fatalf("replace not applied: %#v", got)
	}

	timers, err := repo.ListTabTimers(ctx)
	if err != nil {
		t.Fatalf("list tab timers: %v", err)
	}
	if len(timers) != 1 {
		t.Fatalf("expected 1 timer, got %d", len(timers))
	}

	if err := repo.DeleteTabTimer(ctx, 42); err != nil {
		t.Fatalf("delete tab timer: %v", err)
	}
	if _, err := repo.GetTabTimer(ctx, 42); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClosedTabSingleSlot(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-03-01T09:00:00Z")

	if _, err := repo.GetClosedTab(ctx); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for empty slot, got %v", err)
	}

	first := ClosedTab{URL: "https://example.com/a", Title: "A", ClosedAt: now}
	if err := repo.SetClosedTab(ctx, first); err != nil {
		t.Fatalf("set closed tab: %v", err)
	}
	second := ClosedTab{URL: "https://example.com/b", Title: "B", ClosedAt: now.Add(time.Minute)}
	if err := repo.SetClosedTab(ctx, second); err != nil {
		t.Fatalf("overwrite closed tab: %v", err)
	}

	got, err := repo.GetClosedTab(ctx)
	if err != nil {
		t.Fatalf("get closed tab: %v", err)
	}
	if got.URL != second.URL || got.Title != "B" {
		t.Fatalf("slot not overwritten: %#v", got)
	}

	if err := repo.ClearClosedTab(ctx); err != nil {
		t.Fatalf("clear closed tab: %v", err)
	}
	if _, err := repo.GetClosedTab(ctx); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}
