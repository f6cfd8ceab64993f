package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"google.golang.org/api/googleapi"

	"tabmind/internal/gcal"
	"tabmind/internal/model"
	"tabmind/internal/storage"
	"tabmind/internal/summarize"
)

type Action string

const (
	ActionStartTimer     Action = "startTimer"
	ActionAddTask        Action = "addTask"
	ActionDeleteTask     Action = "deleteTask"
	ActionCompleteTask   Action = "completeTask"
	ActionClearCompleted Action = "clearCompletedTasks"
	ActionSyncCalendar   Action = "syncCalendar"
	ActionSummarizeText  Action = "summarizeText"
	ActionSaveSummary    Action = "saveSummaryToDocs"
	ActionRestoreTab     Action = "restoreTab"
)

type ErrorCode string

const (
	ErrCodeUnknownAction   ErrorCode = "unknown_action"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeNotFound        ErrorCode = "not_found"
	ErrCodeAuthFailed      ErrorCode = "auth_failed"
	ErrCodeRemoteAPI       ErrorCode = "remote_api"
	ErrCodeNetwork         ErrorCode = "network"
	ErrCodeInternal        ErrorCode = "internal"
)

// DispatchError is the failure half of every dispatch result. Callers can
// branch on Code and show Message verbatim.
type DispatchError struct {
	Code    ErrorCode
	Message string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type StartTimerArgs struct {
	TabID   int
	Minutes float64
}

type AddTaskArgs struct {
	Name string
	Time time.Time
	Link string
}

type TaskRefArgs struct {
	ID string
}

type CompleteTaskArgs struct {
	ID        string
	Completed bool
}

type SummarizeArgs struct {
	Text string
}

type SaveSummaryArgs struct {
	PageTitle string
	Summary   string
}

type Request struct {
	Action       Action
	StartTimer   *StartTimerArgs
	AddTask      *AddTaskArgs
	DeleteTask   *TaskRefArgs
	CompleteTask *CompleteTaskArgs
	Summarize    *SummarizeArgs
	SaveSummary  *SaveSummaryArgs
}

type Response struct {
	Message    string
	Success    bool
	Summary    string
	DocumentID string
	TaskID     string
}

// Planner mirrors the alarm planner surface the router drives.
type Planner interface {
	PlanTask(ctx context.Context, task model.Task) error
	CancelTask(ctx context.Context, taskID string) error
}

// Calendar mirrors the reconciler surface the router drives.
type Calendar interface {
	Push(ctx context.Context, task model.Task) (string, error)
	Forget(ctx context.Context, eventID string) error
	Pull(ctx context.Context) (gcal.PullStats, error)
}

// TabTimer mirrors the countdown surface the router drives.
type TabTimer interface {
	Start(ctx context.Context, tabID int, minutes float64) error
	Restore(ctx context.Context) (storage.ClosedTab, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type DocSaver interface {
	Save(ctx context.Context, pageTitle, summary string) (string, error)
}

// Router is the single entry point for every mutating operation. Each
// action resolves to exactly one handler; a Response and a DispatchError
// never both carry meaning.
type Router struct {
	repo     storage.Repository
	planner  Planner
	calendar Calendar
	timer    TabTimer
	summ     Summarizer
	docs     DocSaver
}

func New(repo storage.Repository, planner Planner, calendar Calendar, timer TabTimer, summ Summarizer, docs DocSaver) *Router {
	return &Router{
		repo:     repo,
		planner:  planner,
		calendar: calendar,
		timer:    timer,
		summ:     summ,
		docs:     docs,
	}
}

func (r *Router) Dispatch(ctx context.Context, req Request) (Response, error) {
	switch req.Action {
	case ActionStartTimer:
		if req.StartTimer == nil {
			return Response{}, missingArgs(req.Action)
		}
		return r.startTimer(ctx, *req.StartTimer)
	case ActionAddTask:
		if req.AddTask == nil {
			return Response{}, missingArgs(req.Action)
		}
		return r.addTask(ctx, *req.AddTask)
	case ActionDeleteTask:
		if req.DeleteTask == nil {
			return Response{}, missingArgs(req.Action)
		}
		return r.deleteTask(ctx, req.DeleteTask.ID)
	case ActionCompleteTask:
		if req.CompleteTask == nil {
			return Response{}, missingArgs(req.Action)
		}
		return r.completeTask(ctx, *req.CompleteTask)
	case ActionClearCompleted:
		return r.clearCompleted(ctx)
	case ActionSyncCalendar:
		return r.syncCalendar(ctx)
	case ActionSummarizeText:
		if req.Summarize == nil {
			return Response{}, missingArgs(req.Action)
		}
		return r.summarizeText(ctx, req.Summarize.Text)
	case ActionSaveSummary:
		if req.SaveSummary == nil {
			return Response{}, missingArgs(req.Action)
		}
		return r.saveSummary(ctx, *req.SaveSummary)
	case ActionRestoreTab:
		return r.restoreTab(ctx)
	default:
		return Response{}, &DispatchError{Code: ErrCodeUnknownAction, Message: fmt.Sprintf("unsupported action: %s", req.Action)}
	}
}

func (r *Router) startTimer(ctx context.Context, args StartTimerArgs) (Response, error) {
	if err := r.timer.Start(ctx, args.TabID, args.Minutes); err != nil {
		return Response{}, &DispatchError{Code: ErrCodeInvalidArgument, Message: err.Error()}
	}
	return Response{Success: true, Message: fmt.Sprintf("Timer started for tab %d.", args.TabID)}, nil
}

func (r *Router) addTask(ctx context.Context, args AddTaskArgs) (Response, error) {
	task := model.Task{
		ID:        model.NewTaskID(),
		Name:      args.Name,
		Time:      args.Time,
		Link:      args.Link,
		CreatedAt: time.Now(),
	}
	if err := task.Validate(); err != nil {
		return Response{}, &DispatchError{Code: ErrCodeInvalidArgument, Message: err.Error()}
	}
	if err := r.repo.UpsertTask(ctx, storage.Task(task)); err != nil {
		return Response{}, internal(err)
	}
	if err := r.planner.PlanTask(ctx, task); err != nil {
		return Response{}, internal(err)
	}

	// The task is durable before the calendar push; a remote failure
	// degrades the message, never the store.
	if _, err := r.calendar.Push(ctx, task); err != nil {
		log.Printf("router: calendar push for %s: %v", task.ID, err)
		return Response{Success: true, TaskID: task.ID, Message: "Task added, but calendar sync failed."}, nil
	}
	return Response{Success: true, TaskID: task.ID, Message: "Task added and synced to calendar."}, nil
}

func (r *Router) deleteTask(ctx context.Context, id string) (Response, error) {
	task, err := r.repo.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Response{}, &DispatchError{Code: ErrCodeNotFound, Message: fmt.Sprintf("no task with id %s", id)}
		}
		return Response{}, internal(err)
	}
	if err := r.planner.CancelTask(ctx, id); err != nil {
		return Response{}, internal(err)
	}
	if err := r.repo.DeleteTask(ctx, id); err != nil {
		return Response{}, internal(err)
	}
	r.forgetEvent(ctx, task.EventID)
	return Response{Success: true, Message: "Task deleted."}, nil
}

func (r *Router) completeTask(ctx context.Context, args CompleteTaskArgs) (Response, error) {
	task, err := r.repo.GetTask(ctx, args.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Response{}, &DispatchError{Code: ErrCodeNotFound, Message: fmt.Sprintf("no task with id %s", args.ID)}
		}
		return Response{}, internal(err)
	}
	if err := r.repo.SetTaskCompleted(ctx, args.ID, args.Completed); err != nil {
		return Response{}, internal(err)
	}

	if args.Completed {
		if err := r.planner.CancelTask(ctx, args.ID); err != nil {
			return Response{}, internal(err)
		}
		r.forgetEvent(ctx, task.EventID)
		// The remote event is gone, so drop the linkage; otherwise a later
		// clear would try to delete it a second time.
		if task.EventID != "" {
			if err := r.repo.SetTaskEventID(ctx, args.ID, ""); err != nil {
				return Response{}, internal(err)
			}
		}
		return Response{Success: true, Message: "Task completed."}, nil
	}

	updated := model.Task{
		ID:        task.ID,
		Name:      task.Name,
		Time:      task.Time,
		Link:      task.Link,
		EventID:   task.EventID,
		CreatedAt: task.CreatedAt,
	}
	if err := r.planner.PlanTask(ctx, updated); err != nil {
		return Response{}, internal(err)
	}
	return Response{Success: true, Message: "Task reopened."}, nil
}

func (r *Router) clearCompleted(ctx context.Context) (Response, error) {
	done := true
	completed, err := r.repo.ListTasks(ctx, storage.TaskListFilter{Completed: &done})
	if err != nil {
		return Response{}, internal(err)
	}
	for _, task := range completed {
		r.forgetEvent(ctx, task.EventID)
	}
	purged, err := r.repo.PurgeCompletedTasks(ctx)
	if err != nil {
		return Response{}, internal(err)
	}
	return Response{Success: true, Message: fmt.Sprintf("Cleared %d completed task(s).", len(purged))}, nil
}

func (r *Router) syncCalendar(ctx context.Context) (Response, error) {
	stats, err := r.calendar.Pull(ctx)
	if err != nil {
		derr := classifyRemote(err)
		derr.Message = "Sync failed: " + derr.Message
		return Response{}, derr
	}
	return Response{
		Success: true,
		Message: fmt.Sprintf("Sync successful! %d event(s) applied.", stats.Applied),
	}, nil
}

func (r *Router) summarizeText(ctx context.Context, text string) (Response, error) {
	if text == "" {
		return Response{}, &DispatchError{Code: ErrCodeInvalidArgument, Message: "no text to summarize"}
	}
	summary, err := r.summ.Summarize(ctx, text)
	if errors.Is(err, summarize.ErrNoSummary) {
		// The model answered but had nothing to say; treat that as a
		// result, not a failure.
		return Response{Success: true, Summary: "Summary not available."}, nil
	}
	if err != nil {
		return Response{}, classifyRemote(err)
	}
	return Response{Success: true, Summary: summary}, nil
}

func (r *Router) saveSummary(ctx context.Context, args SaveSummaryArgs) (Response, error) {
	if args.Summary == "" {
		return Response{}, &DispatchError{Code: ErrCodeInvalidArgument, Message: "no summary to save"}
	}
	docID, err := r.docs.Save(ctx, args.PageTitle, args.Summary)
	if err != nil {
		return Response{}, classifyRemote(err)
	}
	return Response{Success: true, DocumentID: docID, Message: "Summary saved to Google Docs."}, nil
}

func (r *Router) restoreTab(ctx context.Context) (Response, error) {
	closed, err := r.timer.Restore(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Response{}, &DispatchError{Code: ErrCodeNotFound, Message: "no recently closed tab"}
		}
		return Response{}, internal(err)
	}
	return Response{Success: true, Message: fmt.Sprintf("Reopened %s.", closed.URL)}, nil
}

// forgetEvent is fire and forget: the local mutation already happened and
// an orphaned calendar event is not worth failing the operation over.
func (r *Router) forgetEvent(ctx context.Context, eventID string) {
	if eventID == "" {
		return
	}
	if err := r.calendar.Forget(ctx, eventID); err != nil {
		log.Printf("router: delete calendar event %s: %v", eventID, err)
	}
}

func missingArgs(action Action) *DispatchError {
	return &DispatchError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires arguments", action)}
}

func internal(err error) *DispatchError {
	return &DispatchError{Code: ErrCodeInternal, Message: err.Error()}
}

// classifyRemote maps a remote call failure onto a dispatch code so the
// presentation layer can distinguish expired credentials from flaky
// networks without string matching.
func classifyRemote(err error) *DispatchError {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 401 || apiErr.Code == 403 {
			return &DispatchError{Code: ErrCodeAuthFailed, Message: err.Error()}
		}
		return &DispatchError{Code: ErrCodeRemoteAPI, Message: err.Error()}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &DispatchError{Code: ErrCodeNetwork, Message: err.Error()}
	}
	return &DispatchError{Code: ErrCodeRemoteAPI, Message: err.Error()}
}
