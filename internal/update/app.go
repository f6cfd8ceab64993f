package update

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"tabmind/internal/model"
	"tabmind/internal/router"
	"tabmind/internal/scheduler"
	"tabmind/internal/storage"
	"tabmind/internal/views"
)

const opTimeout = 30 * time.Second

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadTasksCmd(), m.loadTimersCmd()}
	if m.alarms != nil {
		cmds = append(cmds, waitForAlarmCmd(m.alarms))
	}
	if m.syncEvery > 0 {
		cmds = append(cmds, syncTickCmd(m.syncEvery))
	}
	cmds = append(cmds, timerTickCmd())
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(typed)
	case spinner.TickMsg:
		if m.syncing {
			var cmd tea.Cmd
			m.syncSpinner, cmd = m.syncSpinner.Update(typed)
			return m, cmd
		}
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	case TasksLoadedMsg:
		m.Tasks.Items = typed.Items
		if m.Tasks.Cursor >= len(typed.Items) {
			m.Tasks.Cursor = 0
		}
		return m, nil
	case TimersLoadedMsg:
		m.Timer.Active = typed.Rows
		if m.Timer.Cursor >= len(typed.Rows) {
			m.Timer.Cursor = 0
		}
		return m, nil
	case AlarmFiredMsg:
		cmds := []tea.Cmd{m.resolveAlarmCmd(typed.Event)}
		if m.alarms != nil {
			cmds = append(cmds, waitForAlarmCmd(m.alarms))
		}
		return m, tea.Batch(cmds...)
	case PromptMsg:
		prompt := typed.Prompt
		m.Prompt = &prompt
		return m, nil
	case DismissPromptMsg:
		m.Prompt = nil
		return m, nil
	case SyncDoneMsg:
		m.syncing = false
		switch {
		case typed.Err != nil && typed.Quiet:
			log.Printf("background sync: %v", typed.Err)
		case typed.Err != nil:
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		case typed.Quiet:
			// A background tick succeeding is not worth a status flash.
		default:
			m.Status = StatusBar{Text: typed.Message, IsError: false}
		}
		return m, m.loadTasksCmd()
	case SummaryReadyMsg:
		m.Summary.Busy = false
		if typed.Err != nil {
			m.Summary.Summary = "Error generating summary."
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			return m, nil
		}
		m.Summary.Summary = typed.Summary
		m.Summary.Saved = false
		m.Status = StatusBar{Text: "summary ready", IsError: false}
		return m, nil
	case SummarySavedMsg:
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			return m, nil
		}
		m.Summary.Saved = true
		m.Status = StatusBar{Text: fmt.Sprintf("saved to document %s", typed.DocumentID), IsError: false}
		return m, nil
	case SyncTickMsg:
		cmds := []tea.Cmd{syncTickCmd(m.syncEvery)}
		if !m.syncing {
			m.syncing = true
			cmds = append(cmds, m.syncSpinner.Tick, m.syncCalendarCmd(true))
		}
		return m, tea.Batch(cmds...)
	case TimerTickMsg:
		return m, tea.Batch(m.loadTimersCmd(), timerTickCmd())
	}
	return m, nil
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := key.String()

	if m.inputFocused && keyStr != "esc" && keyStr != "enter" && keyStr != "ctrl+c" && keyStr != "tab" {
		return m.handleViewKey(key)
	}

	switch keyStr {
	case "ctrl+c", m.Keys.Quit:
		if m.inputFocused {
			break
		}
		m.Quitting = true
		return m, tea.Quit
	case m.Keys.Timer:
		if !m.inputFocused {
			m.CurrentView = ViewTimer
			return m, nil
		}
	case m.Keys.Tasks:
		if !m.inputFocused {
			m.CurrentView = ViewTasks
			return m, m.loadTasksCmd()
		}
	case m.Keys.Summary:
		if !m.inputFocused {
			m.CurrentView = ViewSummary
			return m, nil
		}
	case m.Keys.Help:
		if !m.inputFocused {
			m.HelpVisible = !m.HelpVisible
			return m, nil
		}
	case "o":
		if !m.inputFocused && m.Prompt != nil && m.Prompt.CanOpen {
			taskID := m.Prompt.TaskID
			m.Prompt = nil
			return m, m.openLinkCmd(taskID)
		}
	case "x":
		if !m.inputFocused && m.Prompt != nil {
			m.Prompt = nil
			return m, nil
		}
	case "S":
		if !m.inputFocused && !m.syncing {
			m.syncing = true
			m.Status = StatusBar{Text: "sync started", IsError: false}
			return m, tea.Batch(m.syncSpinner.Tick, m.syncCalendarCmd(false))
		}
	}

	return m.handleViewKey(key)
}

func (m Model) handleViewKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.CurrentView {
	case ViewTimer:
		return m.handleTimerKey(key)
	case ViewTasks:
		return m.handleTasksKey(key)
	case ViewSummary:
		return m.handleSummaryKey(key)
	}
	return m, nil
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	leftPane := ""
	switch m.CurrentView {
	case ViewTimer:
		leftPane = m.renderTimerView()
	case ViewTasks:
		leftPane = m.renderTasksView()
	case ViewSummary:
		leftPane = m.renderSummaryView()
	}

	rightPane := m.renderPromptIfVisible() + m.renderHelpIfVisible()

	notification := ""
	if m.syncing {
		notification = "sync: " + m.syncSpinner.View() + " running"
	}

	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("tabmind | view: %s", m.CurrentView),
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		Notification: notification,
		Footer:       fmt.Sprintf("keys: %s timer | %s tasks | %s summary | S sync | %s help | %s quit", m.Keys.Timer, m.Keys.Tasks, m.Keys.Summary, m.Keys.Help, m.Keys.Quit),
	})
}

func (m Model) renderPromptIfVisible() string {
	if m.Prompt == nil {
		return ""
	}
	return views.RenderPromptPanel(views.PromptData{
		Title:   m.Prompt.Title,
		Body:    m.Prompt.Body,
		CanOpen: m.Prompt.CanOpen,
	})
}

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return views.RenderHelpPanel(views.HelpData{
		CurrentView: string(m.CurrentView),
		Bindings:    m.viewBindings(),
	})
}

func (m Model) viewBindings() []string {
	switch m.CurrentView {
	case ViewTimer:
		return []string{
			"[tab] switch field",
			"[enter] start countdown",
			"[r] reopen last closed tab",
			"[j/k] move",
		}
	case ViewTasks:
		return []string{
			"[a] add task (name | time | link)",
			"[j/k] move",
			"[c] toggle complete",
			"[d] delete",
			"[C] clear completed",
			"[S] sync calendar",
		}
	case ViewSummary:
		return []string{
			"[t] edit page title",
			"[e] edit text",
			"[enter] summarize",
			"[w] save to google docs",
		}
	}
	return nil
}

// resolveAlarmCmd turns a due alarm into its effect: a reminder prompt, a
// link open, or a tab close. The persisted record is dropped afterwards so
// a restart does not replay it.
func (m Model) resolveAlarmCmd(ev scheduler.AlarmEvent) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		defer func() {
			if m.janitor != nil {
				_ = m.janitor.MarkFired(ctx, ev.ID)
			}
		}()

		switch model.AlarmKind(ev.Kind) {
		case model.AlarmKindReminder:
			if m.presenter == nil {
				return nil
			}
			prompt, ok, err := m.presenter.HandleReminder(ctx, ev.TaskID)
			if err != nil {
				return AppErrorMsg{Err: err}
			}
			if !ok {
				return nil
			}
			return PromptMsg{Prompt: prompt}
		case model.AlarmKindLinkOpen:
			if m.presenter == nil {
				return nil
			}
			if _, err := m.presenter.HandleLinkOpen(ctx, ev.TaskID); err != nil {
				return AppErrorMsg{Err: err}
			}
			return nil
		case model.AlarmKindTabClose:
			if m.closer == nil {
				return nil
			}
			closed, ok, err := m.closer.HandleExpired(ctx, ev.TabID)
			if err != nil {
				return AppErrorMsg{Err: err}
			}
			if !ok {
				return nil
			}
			if m.presenter != nil {
				m.presenter.TimerExpired(closed.Title)
			}
			return SetStatusMsg{Text: fmt.Sprintf("closed tab %d (%s)", ev.TabID, closed.URL)}
		}
		return nil
	}
}

func (m Model) openLinkCmd(taskID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if _, err := m.presenter.HandleLinkOpen(ctx, taskID); err != nil {
			return AppErrorMsg{Err: err}
		}
		return SetStatusMsg{Text: "link opened"}
	}
}

func (m Model) loadTasksCmd() tea.Cmd {
	return func() tea.Msg {
		if m.repo == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		tasks, err := m.repo.ListTasks(ctx, storage.TaskListFilter{})
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		rows := make([]TaskRow, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, TaskRow{
				ID:        t.ID,
				Name:      t.Name,
				Time:      t.Time,
				Link:      t.Link,
				Completed: t.Completed,
				Synced:    t.EventID != "",
			})
		}
		return TasksLoadedMsg{Items: rows}
	}
}

func (m Model) loadTimersCmd() tea.Cmd {
	return func() tea.Msg {
		if m.repo == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		timers, err := m.repo.ListTabTimers(ctx)
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		rows := make([]TimerRow, 0, len(timers))
		now := time.Now()
		for _, t := range timers {
			remaining := t.EndAt.Sub(now)
			if remaining < 0 {
				remaining = 0
			}
			rows = append(rows, TimerRow{TabID: t.TabID, Remaining: remaining})
		}
		return TimersLoadedMsg{Rows: rows}
	}
}

func (m Model) syncCalendarCmd(quiet bool) tea.Cmd {
	return func() tea.Msg {
		if m.dispatch == nil {
			return SyncDoneMsg{Err: errors.New("dispatcher not configured"), Quiet: quiet}
		}
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		res, err := m.dispatch.Dispatch(ctx, router.Request{Action: router.ActionSyncCalendar})
		if err != nil {
			return SyncDoneMsg{Err: err, Quiet: quiet}
		}
		return SyncDoneMsg{Message: res.Message, Quiet: quiet}
	}
}

func waitForAlarmCmd(ch <-chan scheduler.AlarmEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return AlarmFiredMsg{Event: ev}
	}
}

func syncTickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(time.Time) tea.Msg { return SyncTickMsg{} })
}

func timerTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return TimerTickMsg{} })
}

func isKnownView(v View) bool {
	switch v {
	case ViewTimer, ViewTasks, ViewSummary:
		return true
	default:
		return false
	}
}
