package views

import (
	"fmt"
	"strings"
)

type TimerRowData struct {
	TabID     string
	Remaining string
}

type TimerPanelData struct {
	InputView string
	Rows      []TimerRowData
	Cursor    int
}

type TaskRowData struct {
	ID        string
	Name      string
	When      string
	HasLink   bool
	Completed bool
	Synced    bool
}

type TaskPanelData struct {
	InputView  string
	Rows       []TaskRowData
	SelectedID string
}

type SummaryPanelData struct {
	PageTitle  string
	InputView  string
	TextLoaded bool
	Summary    string
	Busy       bool
	Saved      bool
}

type PromptData struct {
	Title   string
	Body    string
	CanOpen bool
}

type HelpData struct {
	CurrentView string
	Bindings    []string
}

func RenderTimerPanel(data TimerPanelData) string {
	var b strings.Builder
	b.WriteString("tab timers:\n")
	b.WriteString("actions: [a]new [enter]start [r]reopen-last [j/k]move\n")
	if data.InputView != "" {
		b.WriteString(data.InputView + "\n")
	}
	if len(data.Rows) == 0 {
		b.WriteString("(no countdowns running)")
		return strings.TrimSpace(b.String())
	}
	for i, row := range data.Rows {
		cursor := " "
		if i == data.Cursor {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s tab %s closes in %s\n", cursor, row.TabID, row.Remaining))
	}
	return strings.TrimSpace(b.String())
}

func RenderTaskPanel(data TaskPanelData) string {
	var b strings.Builder
	b.WriteString("tasks:\n")
	b.WriteString("actions: [a]add [c]complete [d]delete [C]clear-done [S]sync\n")
	if data.InputView != "" {
		b.WriteString(data.InputView + "\n")
	}
	if len(data.Rows) == 0 {
		b.WriteString("(no tasks yet)")
		return strings.TrimSpace(b.String())
	}
	for _, row := range data.Rows {
		cursor := " "
		if data.SelectedID == row.ID {
			cursor = ">"
		}
		check := "[ ]"
		if row.Completed {
			check = "[x]"
		}
		b.WriteString(fmt.Sprintf("%s %s %s @%s", cursor, check, row.Name, row.When))
		if row.HasLink {
			b.WriteString(" link")
		}
		if row.Synced {
			b.WriteString(" gcal")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func RenderSummaryPanel(data SummaryPanelData) string {
	var b strings.Builder
	b.WriteString("summarize:\n")
	b.WriteString("actions: [t]title [e]text [enter]summarize [w]save-to-docs\n")
	title := data.PageTitle
	if title == "" {
		title = "(untitled page)"
	}
	b.WriteString("page: " + title + "\n")
	if data.InputView != "" {
		b.WriteString(data.InputView + "\n")
	}
	switch {
	case data.Busy:
		b.WriteString("working...")
	case data.Summary != "":
		b.WriteString("summary:\n" + data.Summary)
		if data.Saved {
			b.WriteString("\n(saved to google docs)")
		}
	case data.TextLoaded:
		b.WriteString("(text loaded, press enter to summarize)")
	default:
		b.WriteString("(no text yet)")
	}
	return strings.TrimSpace(b.String())
}

func RenderPromptPanel(data PromptData) string {
	var b strings.Builder
	b.WriteString("reminder:\n")
	b.WriteString(data.Title + "\n")
	b.WriteString(data.Body + "\n")
	if data.CanOpen {
		b.WriteString("actions: [o]open link [x]dismiss")
	} else {
		b.WriteString("actions: [x]dismiss")
	}
	return strings.TrimSpace(b.String())
}

func RenderHelpPanel(data HelpData) string {
	return fmt.Sprintf("help:\n%s view:\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
	)
}
