package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	_ "github.com/mattn/go-sqlite3"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/docs/v1"

	"tabmind/internal/alarms"
	"tabmind/internal/auth"
	"tabmind/internal/gcal"
	"tabmind/internal/notify"
	"tabmind/internal/router"
	"tabmind/internal/scheduler"
	"tabmind/internal/storage"
	"tabmind/internal/summarize"
	"tabmind/internal/tabs"
	"tabmind/internal/update"
)

var googleScopes = []string{calendar.CalendarEventsScope, docs.DocumentsScope}

func main() {
	authorize := flag.Bool("auth", false, "run the interactive Google authorization flow and exit")
	flag.Parse()

	if *authorize {
		if err := auth.Authorize(context.Background(), googleScopes); err != nil {
			fmt.Fprintf(os.Stderr, "authorization failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Authorization complete.")
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tabmind failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	cfg := update.RuntimeConfigFromEnv(update.DefaultRuntimeConfig())

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	db, err := sql.Open("sqlite3", cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := storage.MigrateUp(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		return err
	}

	engine := scheduler.NewEngine(cfg.SchedulerBuffer)
	engine.Start()
	defer engine.Stop()

	planner := alarms.NewPlanner(repo, engine, cfg.ReminderLead())

	ctrl := tabs.ExecController{
		GetCommand:   splitCommand(cfg.TabGetCommand),
		CloseCommand: splitCommand(cfg.TabCloseCommand),
		OpenCommand:  splitCommand(cfg.TabOpenCommand),
	}
	timer := tabs.NewTimer(repo, engine, ctrl)

	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.DesktopNotifications {
		notifier = notify.ExecNotifier{}
	}
	presenter := notify.NewPresenter(repo, notifier, ctrl)

	var events gcal.EventsAPI
	if ge, gerr := gcal.NewGoogleEvents(ctx); gerr != nil {
		log.Printf("calendar disabled: %v", gerr)
		events = gcal.UnavailableEvents{Err: gerr}
	} else {
		events = ge
	}
	reconciler := gcal.NewReconciler(repo, events, planner)

	var saver router.DocSaver
	if gd, derr := summarize.NewGoogleDocs(ctx); derr != nil {
		log.Printf("docs export disabled: %v", derr)
		saver = unavailableDocs{err: derr}
	} else {
		saver = summarize.NewSaver(gd)
	}
	gemini := summarize.NewGeminiClient(cfg.GeminiAPIKey)

	rt := router.New(repo, planner, reconciler, timer, gemini, saver)

	// Requeue alarms that survived the last shutdown and drop countdowns
	// whose deadline passed while the process was down.
	if restored, rerr := planner.Restore(ctx); rerr != nil {
		log.Printf("restore alarms: %v", rerr)
	} else if restored > 0 {
		log.Printf("restored %d pending alarm(s)", restored)
	}
	if err := timer.PruneExpired(ctx); err != nil {
		log.Printf("prune tab timers: %v", err)
	}

	model := update.NewModel(cfg, update.Deps{
		Repo:      repo,
		Dispatch:  rt,
		Presenter: presenter,
		Janitor:   planner,
		Closer:    timer,
		Alarms:    engine.C(),
	})

	program := tea.NewProgram(model)
	if _, err := program.Run(); err != nil {
		return err
	}
	return nil
}

type unavailableDocs struct {
	err error
}

func (u unavailableDocs) Save(context.Context, string, string) (string, error) {
	return "", u.err
}

func splitCommand(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}
