package alarms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tabmind/internal/model"
	"tabmind/internal/scheduler"
	"tabmind/internal/storage"
)

// DefaultLead is how far ahead of a task's deadline the reminder fires.
const DefaultLead = 2 * time.Minute

// Trigger is the in-process scheduling substrate. *scheduler.Engine
// satisfies it.
type Trigger interface {
	Schedule(ev scheduler.AlarmEvent) error
	Cancel(id string)
}

// Planner derives alarms from task deadlines. Alarms are persisted alongside
// their structured purpose so a restarted process can pick them back up; the
// engine itself is treated as disposable.
type Planner struct {
	repo    storage.Repository
	trigger Trigger
	lead    time.Duration
	now     func() time.Time
}

func NewPlanner(repo storage.Repository, trigger Trigger, lead time.Duration) *Planner {
	if lead <= 0 {
		lead = DefaultLead
	}
	return &Planner{repo: repo, trigger: trigger, lead: lead, now: time.Now}
}

// WithClock overrides the planner clock. Tests only.
func (p *Planner) WithClock(now func() time.Time) *Planner {
	p.now = now
	return p
}

// PlanTask schedules the pre-notification and link-open alarms for a task.
// Instants already in the past are skipped, and replanning the same task
// replaces its previous alarms instead of stacking new ones.
func (p *Planner) PlanTask(ctx context.Context, task model.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	now := p.now().UTC()

	reminder := model.Alarm{
		ID:        model.ReminderAlarmID(task.ID),
		Kind:      model.AlarmKindReminder,
		TaskID:    task.ID,
		TriggerAt: task.Time.Add(-p.lead),
	}
	if err := p.planAlarm(ctx, reminder, now); err != nil {
		return fmt.Errorf("plan reminder: %w", err)
	}

	open := model.Alarm{
		ID:        model.LinkOpenAlarmID(task.ID),
		Kind:      model.AlarmKindLinkOpen,
		TaskID:    task.ID,
		TriggerAt: task.Time,
	}
	if err := p.planAlarm(ctx, open, now); err != nil {
		return fmt.Errorf("plan link open: %w", err)
	}
	return nil
}

func (p *Planner) planAlarm(ctx context.Context, alarm model.Alarm, now time.Time) error {
	if !alarm.TriggerAt.After(now) {
		// Clean out any stale alarm left from an earlier deadline.
		return p.dropAlarm(ctx, alarm.ID)
	}
	if err := p.repo.PutAlarm(ctx, storage.AlarmRecord{
		ID:        alarm.ID,
		Kind:      string(alarm.Kind),
		TaskID:    alarm.TaskID,
		TabID:     alarm.TabID,
		TriggerAt: alarm.TriggerAt,
		CreatedAt: now,
	}); err != nil {
		return err
	}
	return p.trigger.Schedule(scheduler.AlarmEvent{
		ID:        alarm.ID,
		Kind:      string(alarm.Kind),
		TaskID:    alarm.TaskID,
		TabID:     alarm.TabID,
		TriggerAt: alarm.TriggerAt,
	})
}

// CancelTask removes both alarms derived from a task. Unknown alarms are a
// silent no-op so deleting an already-fired task stays cheap.
func (p *Planner) CancelTask(ctx context.Context, taskID string) error {
	var firstErr error
	for _, id := range []string{model.ReminderAlarmID(taskID), model.LinkOpenAlarmID(taskID)} {
		if err := p.dropAlarm(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Planner) dropAlarm(ctx context.Context, id string) error {
	p.trigger.Cancel(id)
	if err := p.repo.DeleteAlarm(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// Restore reloads persisted alarm records into the trigger engine after a
// process restart. Records whose instant passed while the process was down
// are discarded: alarms are best-effort hints, not durable obligations.
func (p *Planner) Restore(ctx context.Context) (int, error) {
	records, err := p.repo.ListAlarms(ctx, storage.AlarmListFilter{})
	if err != nil {
		return 0, err
	}
	now := p.now().UTC()
	restored := 0
	for _, rec := range records {
		if !rec.TriggerAt.After(now) {
			if err := p.dropAlarm(ctx, rec.ID); err != nil {
				return restored, err
			}
			continue
		}
		if err := p.trigger.Schedule(scheduler.AlarmEvent{
			ID:        rec.ID,
			Kind:      rec.Kind,
			TaskID:    rec.TaskID,
			TabID:     rec.TabID,
			TriggerAt: rec.TriggerAt,
		}); err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}

// MarkFired drops the persisted record of an alarm that just fired.
func (p *Planner) MarkFired(ctx context.Context, alarmID string) error {
	if err := p.repo.DeleteAlarm(ctx, alarmID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}
