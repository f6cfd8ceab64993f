package update

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"tabmind/internal/router"
	"tabmind/internal/views"
)

func (m Model) handleSummaryKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := key.String()

	if m.inputFocused {
		if m.titleInput.Focused() {
			switch keyStr {
			case "esc", "enter":
				m.Summary.PageTitle = strings.TrimSpace(m.titleInput.Value())
				m.titleInput.Blur()
				m.inputFocused = false
				return m, nil
			}
			var cmd tea.Cmd
			m.titleInput, cmd = m.titleInput.Update(key)
			return m, cmd
		}
		switch keyStr {
		case "esc":
			m.Summary.Text = m.summaryArea.Value()
			m.summaryArea.Blur()
			m.inputFocused = false
			return m, nil
		}
		var cmd tea.Cmd
		m.summaryArea, cmd = m.summaryArea.Update(key)
		return m, cmd
	}

	switch keyStr {
	case "t":
		m.inputFocused = true
		m.titleInput.SetValue(m.Summary.PageTitle)
		m.titleInput.Focus()
		return m, nil
	case "e":
		m.inputFocused = true
		m.summaryArea.SetValue(m.Summary.Text)
		m.summaryArea.Focus()
		return m, nil
	case "enter":
		if m.Summary.Busy {
			return m, nil
		}
		text := strings.TrimSpace(m.Summary.Text)
		if text == "" {
			m.Status = StatusBar{Text: "no text to summarize", IsError: true}
			return m, nil
		}
		m.Summary.Busy = true
		m.Status = StatusBar{Text: "summarizing", IsError: false}
		return m, m.summarizeCmd(text)
	case "w":
		if m.Summary.Summary == "" {
			m.Status = StatusBar{Text: "nothing to save yet", IsError: true}
			return m, nil
		}
		return m, m.saveSummaryCmd(m.Summary.PageTitle, m.Summary.Summary)
	}
	return m, nil
}

func (m Model) summarizeCmd(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		res, err := m.dispatch.Dispatch(ctx, router.Request{
			Action:    router.ActionSummarizeText,
			Summarize: &router.SummarizeArgs{Text: text},
		})
		if err != nil {
			return SummaryReadyMsg{Err: err}
		}
		return SummaryReadyMsg{Summary: res.Summary}
	}
}

func (m Model) saveSummaryCmd(pageTitle, summary string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		res, err := m.dispatch.Dispatch(ctx, router.Request{
			Action:      router.ActionSaveSummary,
			SaveSummary: &router.SaveSummaryArgs{PageTitle: pageTitle, Summary: summary},
		})
		if err != nil {
			return SummarySavedMsg{Err: err}
		}
		return SummarySavedMsg{DocumentID: res.DocumentID}
	}
}

func (m Model) renderSummaryView() string {
	inputView := ""
	if m.inputFocused {
		if m.titleInput.Focused() {
			inputView = m.titleInput.View()
		} else {
			inputView = m.summaryArea.View()
		}
	}
	return views.RenderSummaryPanel(views.SummaryPanelData{
		PageTitle:  m.Summary.PageTitle,
		InputView:  inputView,
		TextLoaded: strings.TrimSpace(m.Summary.Text) != "",
		Summary:    views.RenderMarkdown(m.Summary.Summary),
		Busy:       m.Summary.Busy,
		Saved:      m.Summary.Saved,
	})
}
