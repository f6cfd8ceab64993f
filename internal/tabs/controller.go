package tabs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

var ErrTabGone = errors.New("tabs: tab gone")

type TabInfo struct {
	ID    int
	URL   string
	Title string
}

// Controller is the browser substrate: inspecting, closing and opening tabs.
// The browser side is an external collaborator, so everything behind this
// interface is best-effort.
type Controller interface {
	Get(ctx context.Context, tabID int) (TabInfo, error)
	Close(ctx context.Context, tabID int) error
	Open(ctx context.Context, url string) error
}

// ExecController bridges to the browser through external commands. Get and
// Close run a configured helper with the tab id appended; the helper for Get
// prints "url<TAB>title" on stdout. Open falls back to the platform opener
// when no command is configured. An unconfigured Get/Close reports the tab as
// gone, which callers treat as a no-op.
type ExecController struct {
	GetCommand   []string
	CloseCommand []string
	OpenCommand  []string
}

func (c ExecController) Get(ctx context.Context, tabID int) (TabInfo, error) {
	if len(c.GetCommand) == 0 {
		return TabInfo{}, ErrTabGone
	}
	args := append(append([]string{}, c.GetCommand[1:]...), strconv.Itoa(tabID))
	out, err := exec.CommandContext(ctx, c.GetCommand[0], args...).Output()
	if err != nil {
		return TabInfo{}, ErrTabGone
	}
	line := strings.TrimSpace(string(out))
	if line == "" {
		return TabInfo{}, ErrTabGone
	}
	url, title, _ := strings.Cut(line, "\t")
	return TabInfo{ID: tabID, URL: url, Title: title}, nil
}

func (c ExecController) Close(ctx context.Context, tabID int) error {
	if len(c.CloseCommand) == 0 {
		return ErrTabGone
	}
	args := append(append([]string{}, c.CloseCommand[1:]...), strconv.Itoa(tabID))
	if err := exec.CommandContext(ctx, c.CloseCommand[0], args...).Run(); err != nil {
		return fmt.Errorf("close tab %d: %w", tabID, err)
	}
	return nil
}

func (c ExecController) Open(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("tabs: empty url")
	}
	if len(c.OpenCommand) > 0 {
		args := append(append([]string{}, c.OpenCommand[1:]...), url)
		return exec.CommandContext(ctx, c.OpenCommand[0], args...).Run()
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "open", url).Run()
	default:
		return exec.CommandContext(ctx, "xdg-open", url).Run()
	}
}
