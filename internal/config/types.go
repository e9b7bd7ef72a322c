// Package config loads and watches the bot configuration. YAML and JSON are
// both accepted; YAML is coerced to JSON so one strict decoder
// (DisallowUnknownFields) validates both formats.
package config

import "time"

type Config struct {
	Telegram    TelegramConfig    `json:"telegram"`
	Logging     LoggingConfig     `json:"logging"`
	Storage     StorageConfig     `json:"storage"`
	Delivery    DeliveryConfig    `json:"delivery,omitempty"`
	Maintenance MaintenanceConfig `json:"maintenance,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type StorageConfig struct {
	Path string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite busy_timeout pragma).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// DeliveryConfig controls the notification loops.
//
// All durations are Go duration strings. Defaults when omitted:
//   - retry_backoff: "5s"
//   - rate_per_sec: 25 (Telegram caps bots around 30 msg/s)
type DeliveryConfig struct {
	RetryBackoff string `json:"retry_backoff,omitempty"`
	RatePerSec   int    `json:"rate_per_sec,omitempty"`
}

// MaintenanceConfig controls the periodic housekeeping job (activity report
// and sqlite WAL checkpoint).
type MaintenanceConfig struct {
	Enabled bool `json:"enabled"`
	// ReportEvery is a Go duration string; default "10m".
	ReportEvery string `json:"report_every,omitempty"`
}

// Runtime knobs resolved from the raw string fields.

func (c TelegramConfig) PollTimeoutDuration() (time.Duration, error) {
	return ParseDurationOrDefault("telegram.poll_timeout", c.PollTimeout, 10*time.Second)
}

func (c StorageConfig) BusyTimeoutDuration() (time.Duration, error) {
	return ParseDurationOrDefault("storage.busy_timeout", c.BusyTimeout, 5*time.Second)
}

func (c DeliveryConfig) RetryBackoffDuration() (time.Duration, error) {
	return ParseDurationOrDefault("delivery.retry_backoff", c.RetryBackoff, 5*time.Second)
}

func (c MaintenanceConfig) ReportEveryDuration() (time.Duration, error) {
	return ParseDurationOrDefault("maintenance.report_every", c.ReportEvery, 10*time.Minute)
}
