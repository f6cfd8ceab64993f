package update

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tabmind/internal/router"
	"tabmind/internal/views"
)

const quickAddTimeLayout = "2006-01-02 15:04"

func (m Model) handleTasksKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := key.String()

	if m.inputFocused {
		switch keyStr {
		case "esc":
			m.quickAdd.Blur()
			m.inputFocused = false
			return m, nil
		case "enter":
			return m.addTaskFromInput()
		}
		var cmd tea.Cmd
		m.quickAdd, cmd = m.quickAdd.Update(key)
		return m, cmd
	}

	switch keyStr {
	case "a":
		m.inputFocused = true
		m.quickAdd.Focus()
		return m, nil
	case "j", "down":
		if m.Tasks.Cursor < len(m.Tasks.Items)-1 {
			m.Tasks.Cursor++
		}
		return m, nil
	case "k", "up":
		if m.Tasks.Cursor > 0 {
			m.Tasks.Cursor--
		}
		return m, nil
	case "c":
		if row, ok := m.selectedTask(); ok {
			return m, m.completeTaskCmd(row.ID, !row.Completed)
		}
		return m, nil
	case "d":
		if row, ok := m.selectedTask(); ok {
			return m, m.deleteTaskCmd(row.ID)
		}
		return m, nil
	case "C":
		return m, m.clearCompletedCmd()
	}
	return m, nil
}

func (m Model) selectedTask() (TaskRow, bool) {
	if m.Tasks.Cursor < 0 || m.Tasks.Cursor >= len(m.Tasks.Items) {
		return TaskRow{}, false
	}
	return m.Tasks.Items[m.Tasks.Cursor], true
}

// addTaskFromInput parses "name | 2026-03-02 15:04 | link" from the quick
// add field. The link segment is optional.
func (m Model) addTaskFromInput() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.quickAdd.Value())
	m.quickAdd.Blur()
	m.quickAdd.SetValue("")
	m.inputFocused = false

	name, when, link, err := parseQuickAdd(raw, time.Now())
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	return m, m.addTaskCmd(name, when, link)
}

func parseQuickAdd(raw string, now time.Time) (string, time.Time, string, error) {
	parts := strings.Split(raw, "|")
	if len(parts) < 2 {
		return "", time.Time{}, "", fmt.Errorf("expected: name | %s | link", quickAddTimeLayout)
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return "", time.Time{}, "", fmt.Errorf("task name is empty")
	}
	when, err := time.ParseInLocation(quickAddTimeLayout, strings.TrimSpace(parts[1]), now.Location())
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("bad time %q, expected %s", strings.TrimSpace(parts[1]), quickAddTimeLayout)
	}
	link := ""
	if len(parts) > 2 {
		link = strings.TrimSpace(parts[2])
	}
	return name, when, link, nil
}

func (m Model) addTaskCmd(name string, when time.Time, link string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		res, err := m.dispatch.Dispatch(ctx, router.Request{
			Action:  router.ActionAddTask,
			AddTask: &router.AddTaskArgs{Name: name, Time: when, Link: link},
		})
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		return SetStatusMsg{Text: res.Message}
	}
}

func (m Model) completeTaskCmd(id string, completed bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		res, err := m.dispatch.Dispatch(ctx, router.Request{
			Action:       router.ActionCompleteTask,
			CompleteTask: &router.CompleteTaskArgs{ID: id, Completed: completed},
		})
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		return SetStatusMsg{Text: res.Message}
	}
}

func (m Model) deleteTaskCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		res, err := m.dispatch.Dispatch(ctx, router.Request{
			Action:     router.ActionDeleteTask,
			DeleteTask: &router.TaskRefArgs{ID: id},
		})
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		return SetStatusMsg{Text: res.Message}
	}
}

func (m Model) clearCompletedCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		res, err := m.dispatch.Dispatch(ctx, router.Request{Action: router.ActionClearCompleted})
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		return SetStatusMsg{Text: res.Message}
	}
}

func (m Model) renderTasksView() string {
	rows := make([]views.TaskRowData, 0, len(m.Tasks.Items))
	for _, item := range m.Tasks.Items {
		rows = append(rows, views.TaskRowData{
			ID:        item.ID,
			Name:      item.Name,
			When:      item.Time.Format(quickAddTimeLayout),
			HasLink:   item.Link != "",
			Completed: item.Completed,
			Synced:    item.Synced,
		})
	}
	inputView := ""
	if m.inputFocused {
		inputView = m.quickAdd.View()
	}
	selectedID := ""
	if row, ok := m.selectedTask(); ok {
		selectedID = row.ID
	}
	return views.RenderTaskPanel(views.TaskPanelData{
		InputView:  inputView,
		Rows:       rows,
		SelectedID: selectedID,
	})
}
