package gcal

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/api/calendar/v3"

	"tabmind/internal/model"
	"tabmind/internal/storage"
)

const (
	// PullWindow is how far back Pull looks for remote events.
	PullWindow = 7 * 24 * time.Hour

	// EventDuration is the length of calendar events created from tasks,
	// which carry only a start instant.
	EventDuration = time.Hour

	// ReminderLeadMinutes overrides the calendar's default reminders on
	// events created from tasks.
	ReminderLeadMinutes = 10

	callTimeout = 15 * time.Second
)

// TaskPlanner requeues local alarms when a pull changes a task's schedule.
type TaskPlanner interface {
	PlanTask(ctx context.Context, task model.Task) error
	CancelTask(ctx context.Context, taskID string) error
}

// Reconciler keeps the local task store and a remote calendar consistent.
// Pushes happen per task mutation; pulls sweep a trailing window.
type Reconciler struct {
	repo    storage.Repository
	events  EventsAPI
	planner TaskPlanner
	window  time.Duration
	now     func() time.Time
}

func NewReconciler(repo storage.Repository, events EventsAPI, planner TaskPlanner) *Reconciler {
	return &Reconciler{
		repo:    repo,
		events:  events,
		planner: planner,
		window:  PullWindow,
		now:     time.Now,
	}
}

func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Push mirrors a local task to the calendar and records the resulting event
// id on the task. The remote event ends EventDuration after the task time.
func (r *Reconciler) Push(ctx context.Context, task model.Task) (string, error) {
	ev := &calendar.Event{
		Summary:     task.Name,
		Location:    task.Link,
		Description: task.Link,
		Start:       &calendar.EventDateTime{DateTime: task.Time.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: task.Time.Add(EventDuration).Format(time.RFC3339)},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "popup", Minutes: ReminderLeadMinutes},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	created, err := r.events.Insert(callCtx, ev)
	if err != nil {
		return "", err
	}
	if err := r.repo.SetTaskEventID(ctx, task.ID, created.Id); err != nil {
		return "", fmt.Errorf("record event id for task %s: %w", task.ID, err)
	}
	return created.Id, nil
}

// Forget removes the remote event backing a deleted or completed task.
// The local mutation has already happened; a remote failure is logged by
// the caller, not rolled back.
func (r *Reconciler) Forget(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return r.events.Delete(callCtx, eventID)
}

// PullStats reports what a Pull changed.
type PullStats struct {
	// Fetched counts events returned by the remote listing.
	Fetched int
	// Applied counts events written into the local store.
	Applied int
}

// Pull sweeps remote events starting within the trailing window into the
// local store. An event already known by id overwrites that task's name,
// time and link while keeping its local id and completion flag; an unknown
// event becomes a fresh incomplete task. Alarms are replanned for every
// applied task so schedule changes take effect.
func (r *Reconciler) Pull(ctx context.Context) (PullStats, error) {
	now := r.now()
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	events, err := r.events.ListUpdatedSince(callCtx, now.Add(-r.window))
	if err != nil {
		return PullStats{}, err
	}

	stats := PullStats{Fetched: len(events)}
	for _, ev := range events {
		if ev.Status == "cancelled" {
			continue
		}
		start, ok := eventStart(ev)
		if !ok {
			// All-day events carry a date without a time and cannot
			// drive timed alarms.
			continue
		}
		stored, err := r.repo.UpsertTaskByEventID(ctx, storage.Task{
			ID:        model.TaskIDForEvent(ev.Id),
			Name:      ev.Summary,
			Time:      start,
			Link:      ev.Location,
			EventID:   ev.Id,
			CreatedAt: now,
		})
		if err != nil {
			return stats, fmt.Errorf("apply event %s: %w", ev.Id, err)
		}
		stats.Applied++

		task := model.Task{
			ID:        stored.ID,
			Name:      stored.Name,
			Time:      stored.Time,
			Link:      stored.Link,
			Completed: stored.Completed,
			EventID:   stored.EventID,
			CreatedAt: stored.CreatedAt,
		}
		if task.Completed {
			if err := r.planner.CancelTask(ctx, task.ID); err != nil {
				log.Printf("gcal: cancel alarms for %s: %v", task.ID, err)
			}
			continue
		}
		if err := r.planner.PlanTask(ctx, task); err != nil {
			log.Printf("gcal: replan alarms for %s: %v", task.ID, err)
		}
	}
	return stats, nil
}

func eventStart(ev *calendar.Event) (time.Time, bool) {
	if ev.Start == nil || ev.Start.DateTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
