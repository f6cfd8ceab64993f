package tabs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tabmind/internal/model"
	"tabmind/internal/scheduler"
	"tabmind/internal/storage"
)

// Trigger matches alarms.Trigger; declared here so the package stands alone.
type Trigger interface {
	Schedule(ev scheduler.AlarmEvent) error
	Cancel(id string)
}

// Timer owns the per-tab countdown: one delayed close action per tab,
// at-most-once, keyed by tab id. Starting a timer for a tab that already has
// one replaces it.
type Timer struct {
	repo    storage.Repository
	trigger Trigger
	ctrl    Controller
	now     func() time.Time
}

func NewTimer(repo storage.Repository, trigger Trigger, ctrl Controller) *Timer {
	return &Timer{repo: repo, trigger: trigger, ctrl: ctrl, now: time.Now}
}

// WithClock overrides the timer clock. Tests only.
func (t *Timer) WithClock(now func() time.Time) *Timer {
	t.now = now
	return t
}

func (t *Timer) Start(ctx context.Context, tabID int, minutes float64) error {
	if tabID <= 0 {
		return errors.New("tabs: tab id is required")
	}
	if minutes <= 0 {
		return errors.New("tabs: minutes must be positive")
	}
	now := t.now().UTC()
	endAt := now.Add(time.Duration(minutes * float64(time.Minute)))
	alarmID := model.TabCloseAlarmID(tabID)

	if err := t.repo.PutTabTimer(ctx, storage.TabTimer{
		TabID:     tabID,
		AlarmID:   alarmID,
		EndAt:     endAt,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("persist tab timer: %w", err)
	}
	if err := t.repo.PutAlarm(ctx, storage.AlarmRecord{
		ID:        alarmID,
		Kind:      string(model.AlarmKindTabClose),
		TabID:     tabID,
		TriggerAt: endAt,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("persist tab alarm: %w", err)
	}
	return t.trigger.Schedule(scheduler.AlarmEvent{
		ID:        alarmID,
		Kind:      string(model.AlarmKindTabClose),
		TabID:     tabID,
		TriggerAt: endAt,
	})
}

// Remaining reports how long until the tab's timer fires. ErrNotFound when no
// timer is running for the tab.
func (t *Timer) Remaining(ctx context.Context, tabID int) (time.Duration, error) {
	timer, err := t.repo.GetTabTimer(ctx, tabID)
	if err != nil {
		return 0, err
	}
	left := timer.EndAt.Sub(t.now().UTC())
	if left < 0 {
		left = 0
	}
	return left, nil
}

// HandleExpired runs the close action for a fired tab alarm: capture the
// tab's URL and title into the single last-closed slot, then close it. A tab
// that no longer exists makes the whole action a no-op.
func (t *Timer) HandleExpired(ctx context.Context, tabID int) (storage.ClosedTab, bool, error) {
	if err := t.repo.DeleteTabTimer(ctx, tabID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return storage.ClosedTab{}, false, err
	}

	info, err := t.ctrl.Get(ctx, tabID)
	if err != nil {
		if errors.Is(err, ErrTabGone) {
			return storage.ClosedTab{}, false, nil
		}
		return storage.ClosedTab{}, false, err
	}

	closed := storage.ClosedTab{URL: info.URL, Title: info.Title, ClosedAt: t.now().UTC()}
	if err := t.repo.SetClosedTab(ctx, closed); err != nil {
		return storage.ClosedTab{}, false, err
	}
	if err := t.ctrl.Close(ctx, tabID); err != nil && !errors.Is(err, ErrTabGone) {
		return closed, false, err
	}
	return closed, true, nil
}

// Restore reopens the last closed tab and clears the slot.
func (t *Timer) Restore(ctx context.Context) (storage.ClosedTab, error) {
	closed, err := t.repo.GetClosedTab(ctx)
	if err != nil {
		return storage.ClosedTab{}, err
	}
	if err := t.ctrl.Open(ctx, closed.URL); err != nil {
		return storage.ClosedTab{}, err
	}
	if err := t.repo.ClearClosedTab(ctx); err != nil {
		return storage.ClosedTab{}, err
	}
	return closed, nil
}

// PruneExpired deletes timer rows whose alarm passed while the process was
// down. The matching alarm records are pruned by the planner's restore.
func (t *Timer) PruneExpired(ctx context.Context) error {
	timers, err := t.repo.ListTabTimers(ctx)
	if err != nil {
		return err
	}
	now := t.now().UTC()
	for _, timer := range timers {
		if timer.EndAt.After(now) {
			continue
		}
		if err := t.repo.DeleteTabTimer(ctx, timer.TabID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	return nil
}
