package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	// All mutations go through one connection, which is the single-writer
	// discipline the store promises.
	db.SetMaxOpenConns(1)
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) UpsertTask(ctx context.Context, in Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, name, time, link, completed, event_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			time = excluded.time,
			link = excluded.link,
			completed = excluded.completed,
			event_id = excluded.event_id`,
		in.ID, in.Name, mustTime(in.Time), in.Link, boolInt(in.Completed), nullString(in.EventID), mustTime(in.CreatedAt),
	)
	return err
}

// UpsertTaskByEventID applies a pulled remote event. A task already holding
// the event id keeps its id and completed flag but takes the remote
// name/time/link; otherwise a fresh incomplete task is inserted. Returns the
// stored row.
func (r *SQLiteRepository) UpsertTaskByEventID(ctx context.Context, in Task) (Task, error) {
	if strings.TrimSpace(in.EventID) == "" {
		return Task{}, errors.New("storage: event id is required for event upsert")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, err
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM tasks WHERE event_id = ?`, in.EventID).Scan(&existingID)
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE tasks SET name = ?, time = ?, link = ? WHERE id = ?`,
			in.Name, mustTime(in.Time), in.Link, existingID,
		)
		if err != nil {
			return Task{}, err
		}
	case errors.Is(err, sql.ErrNoRows):
		existingID = in.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (id, name, time, link, completed, event_id, created_at)
			VALUES (?, ?, ?, ?, 0, ?, ?)`,
			in.ID, in.Name, mustTime(in.Time), in.Link, in.EventID, mustTime(in.CreatedAt),
		)
		if err != nil {
			return Task{}, err
		}
	default:
		return Task{}, err
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, name, time, link, completed, event_id, created_at
		FROM tasks WHERE id = ?`, existingID)
	stored, err := scanTask(row)
	if err != nil {
		return Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return Task{}, err
	}
	return stored, nil
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, time, link, completed, event_id, created_at
		FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) SetTaskEventID(ctx context.Context, id, eventID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET event_id = ? WHERE id = ?`, nullString(eventID), id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) SetTaskCompleted(ctx context.Context, id string, completed bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET completed = ? WHERE id = ?`, boolInt(completed), id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error) {
	query := `SELECT id, name, time, link, completed, event_id, created_at FROM tasks`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.Completed != nil {
		clauses = append(clauses, "completed = ?")
		args = append(args, boolInt(*filter.Completed))
	}
	if filter.EventID != "" {
		clauses = append(clauses, "event_id = ?")
		args = append(args, filter.EventID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY completed ASC, time ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// PurgeCompletedTasks deletes every completed task and returns the deleted
// rows so the caller can release remote events and alarms.
func (r *SQLiteRepository) PurgeCompletedTasks(ctx context.Context) ([]Task, error) {
	done := true
	purged, err := r.ListTasks(ctx, TaskListFilter{Completed: &done})
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE completed = 1`); err != nil {
		return nil, err
	}
	return purged, nil
}

func (r *SQLiteRepository) PutAlarm(ctx context.Context, in AlarmRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alarms (id, kind, task_id, tab_id, trigger_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			task_id = excluded.task_id,
			tab_id = excluded.tab_id,
			trigger_at = excluded.trigger_at`,
		in.ID, in.Kind, in.TaskID, in.TabID, mustTime(in.TriggerAt), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetAlarm(ctx context.Context, id string) (AlarmRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, task_id, tab_id, trigger_at, created_at
		FROM alarms WHERE id = ?`, id)
	item, err := scanAlarm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AlarmRecord{}, ErrNotFound
		}
		return AlarmRecord{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) DeleteAlarm(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListAlarms(ctx context.Context, filter AlarmListFilter) ([]AlarmRecord, error) {
	query := `SELECT id, kind, task_id, tab_id, trigger_at, created_at FROM alarms`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.TaskID != "" {
		clauses = append(clauses, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY trigger_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]AlarmRecord, 0)
	for rows.Next() {
		item, scanErr := scanAlarm(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) PutTabTimer(ctx context.Context, in TabTimer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tab_timers (tab_id, alarm_id, end_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tab_id) DO UPDATE SET
			alarm_id = excluded.alarm_id,
			end_at = excluded.end_at`,
		in.TabID, in.AlarmID, mustTime(in.EndAt), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetTabTimer(ctx context.Context, tabID int) (TabTimer, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT tab_id, alarm_id, end_at, created_at FROM tab_timers WHERE tab_id = ?`, tabID)
	var item TabTimer
	var endAt, createdAt string
	if err := row.Scan(&item.TabID, &item.AlarmID, &endAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TabTimer{}, ErrNotFound
		}
		return TabTimer{}, err
	}
	var err error
	if item.EndAt, err = parseTime(endAt); err != nil {
		return TabTimer{}, err
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return TabTimer{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) DeleteTabTimer(ctx context.Context, tabID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tab_timers WHERE tab_id = ?`, tabID)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTabTimers(ctx context.Context) ([]TabTimer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tab_id, alarm_id, end_at, created_at FROM tab_timers ORDER BY end_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TabTimer, 0)
	for rows.Next() {
		var item TabTimer
		var endAt, createdAt string
		if err := rows.Scan(&item.TabID, &item.AlarmID, &endAt, &createdAt); err != nil {
			return nil, err
		}
		if item.EndAt, err = parseTime(endAt); err != nil {
			return nil, err
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// The closed-tab record is a single slot: writing overwrites whatever was
// there before.
func (r *SQLiteRepository) SetClosedTab(ctx context.Context, in ClosedTab) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO closed_tab (slot, url, title, closed_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			closed_at = excluded.closed_at`,
		in.URL, in.Title, mustTime(in.ClosedAt),
	)
	return err
}

func (r *SQLiteRepository) GetClosedTab(ctx context.Context) (ClosedTab, error) {
	row := r.db.QueryRowContext(ctx, `SELECT url, title, closed_at FROM closed_tab WHERE slot = 1`)
	var item ClosedTab
	var closedAt string
	if err := row.Scan(&item.URL, &item.Title, &closedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ClosedTab{}, ErrNotFound
		}
		return ClosedTab{}, err
	}
	var err error
	if item.ClosedAt, err = parseTime(closedAt); err != nil {
		return ClosedTab{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) ClearClosedTab(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM closed_tab WHERE slot = 1`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var task Task
	var timeStr, createdAt string
	var completed int
	var eventID sql.NullString
	if err := row.Scan(&task.ID, &task.Name, &timeStr, &task.Link, &completed, &eventID, &createdAt); err != nil {
		return Task{}, err
	}
	var err error
	if task.Time, err = parseTime(timeStr); err != nil {
		return Task{}, err
	}
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return Task{}, err
	}
	task.Completed = completed != 0
	if eventID.Valid {
		task.EventID = eventID.String
	}
	return task, nil
}

func scanAlarm(row rowScanner) (AlarmRecord, error) {
	var item AlarmRecord
	var triggerAt, createdAt string
	if err := row.Scan(&item.ID, &item.Kind, &item.TaskID, &item.TabID, &triggerAt, &createdAt); err != nil {
		return AlarmRecord{}, err
	}
	var err error
	if item.TriggerAt, err = parseTime(triggerAt); err != nil {
		return AlarmRecord{}, err
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return AlarmRecord{}, err
	}
	return item, nil
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseTime(v string) (time.Time, error) {
	tm, err := time.Parse(sqliteTimeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", v, err)
	}
	return tm, nil
}

func nullString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	out := ""
	if limit > 0 {
		out += " LIMIT ?"
		*args = append(*args, limit)
		if offset > 0 {
			out += " OFFSET ?"
			*args = append(*args, offset)
		}
	}
	return out
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
