package update

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"tabmind/internal/router"
	"tabmind/internal/views"
)

func (m Model) handleTimerKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := key.String()

	if m.inputFocused {
		switch keyStr {
		case "esc":
			m.blurTimerInputs()
			return m, nil
		case "tab":
			if m.tabIDInput.Focused() {
				m.tabIDInput.Blur()
				m.minutesInput.Focus()
			} else {
				m.minutesInput.Blur()
				m.tabIDInput.Focus()
			}
			return m, nil
		case "enter":
			return m.startTimerFromInputs()
		}
		var cmd tea.Cmd
		if m.tabIDInput.Focused() {
			m.tabIDInput, cmd = m.tabIDInput.Update(key)
		} else {
			m.minutesInput, cmd = m.minutesInput.Update(key)
		}
		return m, cmd
	}

	switch keyStr {
	case "a", "enter":
		m.inputFocused = true
		m.tabIDInput.Focus()
		return m, nil
	case "j", "down":
		if m.Timer.Cursor < len(m.Timer.Active)-1 {
			m.Timer.Cursor++
		}
		return m, nil
	case "k", "up":
		if m.Timer.Cursor > 0 {
			m.Timer.Cursor--
		}
		return m, nil
	case "r":
		return m, m.restoreTabCmd()
	}
	return m, nil
}

func (m *Model) blurTimerInputs() {
	m.tabIDInput.Blur()
	m.minutesInput.Blur()
	m.inputFocused = false
}

func (m Model) startTimerFromInputs() (tea.Model, tea.Cmd) {
	tabID, err := strconv.Atoi(strings.TrimSpace(m.tabIDInput.Value()))
	if err != nil {
		m.Status = StatusBar{Text: "tab id must be a number", IsError: true}
		return m, nil
	}
	minutes, err := strconv.ParseFloat(strings.TrimSpace(m.minutesInput.Value()), 64)
	if err != nil {
		m.Status = StatusBar{Text: "minutes must be a number", IsError: true}
		return m, nil
	}
	m.blurTimerInputs()
	m.tabIDInput.SetValue("")
	m.minutesInput.SetValue("")
	return m, m.startTimerCmd(tabID, minutes)
}

func (m Model) startTimerCmd(tabID int, minutes float64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		res, err := m.dispatch.Dispatch(ctx, router.Request{
			Action:     router.ActionStartTimer,
			StartTimer: &router.StartTimerArgs{TabID: tabID, Minutes: minutes},
		})
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		return SetStatusMsg{Text: res.Message}
	}
}

func (m Model) restoreTabCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		res, err := m.dispatch.Dispatch(ctx, router.Request{Action: router.ActionRestoreTab})
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		return SetStatusMsg{Text: res.Message}
	}
}

func (m Model) renderTimerView() string {
	rows := make([]views.TimerRowData, 0, len(m.Timer.Active))
	for _, row := range m.Timer.Active {
		rows = append(rows, views.TimerRowData{
			TabID:     fmt.Sprintf("%d", row.TabID),
			Remaining: formatDuration(int(row.Remaining.Seconds())),
		})
	}
	inputView := ""
	if m.inputFocused {
		inputView = m.tabIDInput.View() + "  " + m.minutesInput.View()
	}
	return views.RenderTimerPanel(views.TimerPanelData{
		InputView: inputView,
		Rows:      rows,
		Cursor:    m.Timer.Cursor,
	})
}
