package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a reminder id does not exist or does not
	// belong to the requesting owner.
	ErrNotFound = errors.New("reminder not found")

	// ErrInvalidInterval is returned by Create for labels outside the
	// interval catalog.
	ErrInvalidInterval = errors.New("invalid interval label")

	// ErrInvalidMessage is returned by Create for empty message text.
	ErrInvalidMessage = errors.New("empty reminder message")
)

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Reminder is a durable record of a scheduled recurring notification.
// Records are never mutated in place; changes are delete+recreate.
type Reminder struct {
	ID            int64
	OwnerID       int64
	IntervalLabel string
	MessageText   string
	CreatedAt     time.Time
}
