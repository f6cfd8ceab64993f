package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tabmind/internal/storage"
)

// LinkOpener opens a URL in the browser. tabs.ExecController satisfies it.
type LinkOpener interface {
	Open(ctx context.Context, url string) error
}

// Prompt is an in-app notification the UI can act on. CanOpen marks the
// actionable variant with "open" and "dismiss" choices.
type Prompt struct {
	TaskID  string
	Title   string
	Body    string
	CanOpen bool
	At      time.Time
}

// Presenter turns fired alarms into user-visible prompts. Task linkage is
// re-resolved from the store at fire time; a task deleted since scheduling
// makes the fire a silent no-op.
type Presenter struct {
	repo     storage.Repository
	notifier Notifier
	opener   LinkOpener
	now      func() time.Time
}

func NewPresenter(repo storage.Repository, notifier Notifier, opener LinkOpener) *Presenter {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Presenter{repo: repo, notifier: notifier, opener: opener, now: time.Now}
}

// WithClock overrides the presenter clock. Tests only.
func (p *Presenter) WithClock(now func() time.Time) *Presenter {
	p.now = now
	return p
}

// HandleReminder builds the pre-notification prompt for a task. The second
// return is false when the task is gone and nothing should be shown.
func (p *Presenter) HandleReminder(ctx context.Context, taskID string) (Prompt, bool, error) {
	task, err := p.repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Prompt{}, false, nil
		}
		return Prompt{}, false, err
	}

	prompt := Prompt{
		TaskID:  task.ID,
		Title:   "Upcoming Task",
		Body:    fmt.Sprintf("Your task %q is scheduled now.", task.Name),
		CanOpen: task.Link != "",
		At:      p.now().UTC(),
	}
	// Desktop delivery is best effort; the in-app prompt is the contract.
	_ = p.notifier.Send(Notification{Title: prompt.Title, Body: prompt.Body, Level: "info", At: prompt.At})
	return prompt, true, nil
}

// HandleLinkOpen runs the deadline action: open the task's meeting link.
// Linkless or vanished tasks are a no-op.
func (p *Presenter) HandleLinkOpen(ctx context.Context, taskID string) (bool, error) {
	task, err := p.repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if task.Link == "" {
		return false, nil
	}
	if err := p.opener.Open(ctx, task.Link); err != nil {
		return false, fmt.Errorf("open link for %s: %w", taskID, err)
	}
	return true, nil
}

// TimerExpired announces a tab the countdown just closed.
func (p *Presenter) TimerExpired(tabTitle string) {
	body := fmt.Sprintf("The timer for %q has ended.", tabTitle)
	_ = p.notifier.Send(Notification{Title: "Time's Up!", Body: body, Level: "info", At: p.now().UTC()})
}
