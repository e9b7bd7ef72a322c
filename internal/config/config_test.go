package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const validYAML = `
telegram:
  token: "123:abc"
  poll_timeout: "15s"
logging:
  level: debug
  console: true
  file:
    enabled: false
    path: ""
storage:
  path: "./reminders.db"
  busy_timeout: "2s"
delivery:
  retry_backoff: "7s"
  rate_per_sec: 10
maintenance:
  enabled: true
  report_every: "5m"
`

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeFile(t, "config.yaml", validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if d, _ := cfg.Telegram.PollTimeoutDuration(); d != 15*time.Second {
		t.Fatalf("poll timeout = %v", d)
	}
	if d, _ := cfg.Delivery.RetryBackoffDuration(); d != 7*time.Second {
		t.Fatalf("retry backoff = %v", d)
	}
	if cfg.Delivery.RatePerSec != 10 {
		t.Fatalf("rate = %d", cfg.Delivery.RatePerSec)
	}
	if d, _ := cfg.Maintenance.ReportEveryDuration(); d != 5*time.Minute {
		t.Fatalf("report every = %v", d)
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeFile(t, "config.json",
		`{"telegram":{"token":"t"},"logging":{"level":"info","console":true,"file":{"enabled":false,"path":""}},"storage":{"path":"db"}}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Omitted durations fall back to defaults.
	if d, _ := cfg.Delivery.RetryBackoffDuration(); d != 5*time.Second {
		t.Fatalf("default retry backoff = %v", d)
	}
	if d, _ := cfg.Telegram.PollTimeoutDuration(); d != 10*time.Second {
		t.Fatalf("default poll timeout = %v", d)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := Load(writeFile(t, "config.yaml", validYAML+"\nsurprise: 1\n"))
	if err == nil {
		t.Fatal("expected error for unknown top-level key")
	}
}

func TestLoadRejectsMissingToken(t *testing.T) {
	t.Parallel()
	bad := strings.Replace(validYAML, `token: "123:abc"`, `token: ""`, 1)
	if _, err := Load(writeFile(t, "config.yaml", bad)); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Parallel()
	bad := strings.Replace(validYAML, `retry_backoff: "7s"`, `retry_backoff: "soon"`, 1)
	if _, err := Load(writeFile(t, "config.yaml", bad)); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", " 90s "); err != nil || d != 90*time.Second {
		t.Fatalf("got %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: got %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatal("negative duration must fail")
	}
}
