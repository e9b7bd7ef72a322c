package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"remindbot/internal/eventbus"
	"remindbot/internal/interval"
	"remindbot/pkg/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS reminders (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id       INTEGER NOT NULL,
    interval_label TEXT    NOT NULL,
    message_text   TEXT    NOT NULL,
    created_at     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reminders_owner ON reminders(owner_id);
`

// Store provides durable CRUD over reminders, keyed by owner and id.
// It is safe for concurrent use; SQLite serializes writes.
type Store struct {
	db  *sql.DB
	log logx.Logger
	bus eventbus.Bus // optional; lifecycle events for maintenance reporting
}

func Open(cfg Config, log logx.Logger, bus eventbus.Bus) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, log: log, bus: bus}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create validates the input, assigns a new unique id and commits the record.
func (s *Store) Create(ctx context.Context, ownerID int64, intervalLabel, messageText string) (Reminder, error) {
	if !interval.Valid(intervalLabel) {
		return Reminder{}, fmt.Errorf("%w: %q", ErrInvalidInterval, intervalLabel)
	}
	if strings.TrimSpace(messageText) == "" {
		return Reminder{}, ErrInvalidMessage
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(owner_id, interval_label, message_text, created_at) VALUES(?,?,?,?)`,
		ownerID, intervalLabel, messageText, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Reminder{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Reminder{}, err
	}

	r := Reminder{ID: id, OwnerID: ownerID, IntervalLabel: intervalLabel, MessageText: messageText, CreatedAt: now}
	s.log.Info("reminder created",
		logx.Int64("reminder_id", r.ID),
		logx.Int64("owner_id", r.OwnerID),
		logx.String("interval", r.IntervalLabel))
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.ReminderCreated, ReminderID: r.ID, OwnerID: r.OwnerID})
	}
	return r, nil
}

// ListByOwner returns the owner's reminders ordered by id ascending.
// No reminders is not an error: the result is simply empty.
func (s *Store) ListByOwner(ctx context.Context, ownerID int64) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, interval_label, message_text, created_at
		   FROM reminders WHERE owner_id = ? ORDER BY id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (s *Store) GetByID(ctx context.Context, id int64) (Reminder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, interval_label, message_text, created_at
		   FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Reminder{}, ErrNotFound
	}
	return r, err
}

// DeleteByOwnerAndID removes the reminder only when it belongs to ownerID.
// The ownership check prevents cross-owner deletion.
func (s *Store) DeleteByOwnerAndID(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.log.Info("reminder deleted", logx.Int64("reminder_id", id), logx.Int64("owner_id", ownerID))
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.ReminderDeleted, ReminderID: id, OwnerID: ownerID})
	}
	return nil
}

// ListAll returns every stored reminder ordered by id. Used by recovery.
func (s *Store) ListAll(ctx context.Context) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, interval_label, message_text, created_at
		   FROM reminders ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

// Count returns the number of stored reminders.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reminders`).Scan(&n)
	return n, err
}

// Checkpoint compacts the WAL. Called periodically by maintenance; the bot
// runs for months between restarts and the WAL grows otherwise.
func (s *Store) Checkpoint(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (Reminder, error) {
	var r Reminder
	var created string
	if err := row.Scan(&r.ID, &r.OwnerID, &r.IntervalLabel, &r.MessageText, &created); err != nil {
		return Reminder{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		r.CreatedAt = t
	}
	return r, nil
}

func scanReminders(rows *sql.Rows) ([]Reminder, error) {
	var out []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
