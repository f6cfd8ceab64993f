package notify

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tabmind/internal/storage"
)

type recordingNotifier struct {
	sent []Notification
}

func (r *recordingNotifier) Send(n Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

type recordingOpener struct {
	opened []string
}

func (r *recordingOpener) Open(_ context.Context, url string) error {
	r.opened = append(r.opened, url)
	return nil
}

func setupPresenter(t *testing.T, now time.Time) (*Presenter, *recordingNotifier, *recordingOpener, storage.Repository) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "notify-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	notifier := &recordingNotifier{}
	opener := &recordingOpener{}
	presenter := NewPresenter(repo, notifier, opener).WithClock(func() time.Time { return now })
	return presenter, notifier, opener, repo
}

func seedTask(t *testing.T, repo storage.Repository, id, link string, at time.Time) {
	t.Helper()
	err := repo.UpsertTask(context.Background(), storage.Task{
		ID:        id,
		Name:      "Standup",
		Time:      at.Add(30 * time.Minute),
		Link:      link,
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}
}

func TestHandleReminderWithLinkIsActionable(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	presenter, notifier, _, repo := setupPresenter(t, now)
	seedTask(t, repo, "task-1", "https://meet.example.com/abc", now)

	prompt, ok, err := presenter.HandleReminder(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("handle reminder: %v", err)
	}
	if !ok {
		t.Fatal("expected a prompt")
	}
	if !prompt.CanOpen {
		t.Fatal("expected actionable prompt for linked task")
	}
	if !strings.Contains(prompt.Body, "Standup") {
		t.Fatalf("unexpected body: %q", prompt.Body)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Title != "Upcoming Task" {
		t.Fatalf("desktop notification not sent: %#v", notifier.sent)
	}
}

func TestHandleReminderWithoutLinkIsPlain(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	presenter, _, _, repo := setupPresenter(t, now)
	seedTask(t, repo, "task-2", "", now)

	prompt, ok, err := presenter.HandleReminder(context.Background(), "task-2")
	if err != nil {
		t.Fatalf("handle reminder: %v", err)
	}
	if !ok || prompt.CanOpen {
		t.Fatalf("expected plain prompt, got ok=%v prompt=%#v", ok, prompt)
	}
}

func TestHandleReminderVanishedTaskIsNoOp(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	presenter, notifier, _, _ := setupPresenter(t, now)

	_, ok, err := presenter.HandleReminder(context.Background(), "task-gone")
	if err != nil {
		t.Fatalf("handle reminder: %v", err)
	}
	if ok {
		t.Fatal("expected no prompt for deleted task")
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("nothing should be sent: %#v", notifier.sent)
	}
}

func TestHandleLinkOpen(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	presenter, _, opener, repo := setupPresenter(t, now)
	seedTask(t, repo, "task-1", "https://meet.example.com/abc", now)
	seedTask(t, repo, "task-2", "", now)

	opened, err := presenter.HandleLinkOpen(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("link open: %v", err)
	}
	if !opened || len(opener.opened) != 1 || opener.opened[0] != "https://meet.example.com/abc" {
		t.Fatalf("link not opened: opened=%v calls=%v", opened, opener.opened)
	}

	opened, err = presenter.HandleLinkOpen(context.Background(), "task-2")
	if err != nil {
		t.Fatalf("linkless open: %v", err)
	}
	if opened {
		t.Fatal("expected no-op for linkless task")
	}

	opened, err = presenter.HandleLinkOpen(context.Background(), "task-gone")
	if err != nil {
		t.Fatalf("vanished open: %v", err)
	}
	if opened {
		t.Fatal("expected no-op for vanished task")
	}
}

func TestTimerExpiredSendsNotification(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	presenter, notifier, _, _ := setupPresenter(t, now)

	presenter.TimerExpired("Docs – draft")
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	if notifier.sent[0].Title != "Time's Up!" || !strings.Contains(notifier.sent[0].Body, "Docs – draft") {
		t.Fatalf("unexpected notification: %#v", notifier.sent[0])
	}
}
