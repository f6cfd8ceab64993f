package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"

	"tabmind/internal/notify"
	"tabmind/internal/router"
	"tabmind/internal/scheduler"
	"tabmind/internal/storage"
)

type View string

const (
	ViewTimer   View = "Timer"
	ViewTasks   View = "Tasks"
	ViewSummary View = "Summary"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Timer   string
	Tasks   string
	Summary string
	Help    string
	Quit    string
}

// Dispatcher is the mutation entry point the TUI drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, req router.Request) (router.Response, error)
}

// ReminderHandler resolves fired alarms into user-facing prompts.
type ReminderHandler interface {
	HandleReminder(ctx context.Context, taskID string) (notify.Prompt, bool, error)
	HandleLinkOpen(ctx context.Context, taskID string) (bool, error)
	TimerExpired(tabTitle string)
}

// AlarmJanitor drops persisted alarm records once they have fired.
type AlarmJanitor interface {
	MarkFired(ctx context.Context, alarmID string) error
}

// TabCloser finishes expired tab countdowns.
type TabCloser interface {
	HandleExpired(ctx context.Context, tabID int) (storage.ClosedTab, bool, error)
	Remaining(ctx context.Context, tabID int) (time.Duration, error)
}

type TimerState struct {
	Active []TimerRow
	Cursor int
}

type TimerRow struct {
	TabID     int
	Remaining time.Duration
}

type TaskRow struct {
	ID        string
	Name      string
	Time      time.Time
	Link      string
	Completed bool
	Synced    bool
}

type TasksState struct {
	Items  []TaskRow
	Cursor int
}

type SummaryState struct {
	PageTitle string
	Text      string
	Summary   string
	Busy      bool
	Saved     bool
}

type Model struct {
	CurrentView View
	Timer       TimerState
	Tasks       TasksState
	Summary     SummaryState
	Prompt      *notify.Prompt
	Status      StatusBar
	Keys        GlobalKeyMap
	HelpVisible bool
	Quitting    bool
	LastError   error

	repo      storage.Repository
	dispatch  Dispatcher
	presenter ReminderHandler
	janitor   AlarmJanitor
	closer    TabCloser
	alarms    <-chan scheduler.AlarmEvent
	syncEvery time.Duration

	tabIDInput   textinput.Model
	minutesInput textinput.Model
	quickAdd     textinput.Model
	titleInput   textinput.Model
	summaryArea  textarea.Model
	syncSpinner  spinner.Model
	syncing      bool
	inputFocused bool
}

type Deps struct {
	Repo      storage.Repository
	Dispatch  Dispatcher
	Presenter ReminderHandler
	Janitor   AlarmJanitor
	Closer    TabCloser
	Alarms    <-chan scheduler.AlarmEvent
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

type AlarmFiredMsg struct {
	Event scheduler.AlarmEvent
}

type TasksLoadedMsg struct {
	Items []TaskRow
}

type TimersLoadedMsg struct {
	Rows []TimerRow
}

type PromptMsg struct {
	Prompt notify.Prompt
}

type DismissPromptMsg struct{}

type SyncDoneMsg struct {
	Message string
	Err     error
	// Quiet marks a background run: failures are logged, not surfaced.
	Quiet bool
}

type SummaryReadyMsg struct {
	Summary string
	Err     error
}

type SummarySavedMsg struct {
	DocumentID string
	Err        error
}

type SyncTickMsg struct{}

type TimerTickMsg struct{}

func NewModel(cfg RuntimeConfig, deps Deps) Model {
	m := Model{
		CurrentView: ViewTasks,
		Keys: GlobalKeyMap{
			Timer:   "1",
			Tasks:   "2",
			Summary: "3",
			Help:    "?",
			Quit:    "q",
		},
		repo:      deps.Repo,
		dispatch:  deps.Dispatch,
		presenter: deps.Presenter,
		janitor:   deps.Janitor,
		closer:    deps.Closer,
		alarms:    deps.Alarms,
		syncEvery: cfg.SyncInterval(),
	}
	m.initBubbleComponents()
	return m
}

func (m *Model) initBubbleComponents() {
	m.tabIDInput = textinput.New()
	m.tabIDInput.Placeholder = "tab id"
	m.tabIDInput.CharLimit = 8

	m.minutesInput = textinput.New()
	m.minutesInput.Placeholder = "minutes"
	m.minutesInput.CharLimit = 6

	m.quickAdd = textinput.New()
	m.quickAdd.Placeholder = "name | 2026-03-02 15:04 | link"
	m.quickAdd.CharLimit = 200

	m.titleInput = textinput.New()
	m.titleInput.Placeholder = "page title"
	m.titleInput.CharLimit = 120

	m.summaryArea = textarea.New()
	m.summaryArea.Placeholder = "paste page text here"
	m.summaryArea.SetHeight(8)

	m.syncSpinner = spinner.New()
	m.syncSpinner.Spinner = spinner.Dot
}
