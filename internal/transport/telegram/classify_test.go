package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"net timeout", net.Error(timeoutError{}), true},
		{"wrapped net timeout", fmt.Errorf("send: %w", timeoutError{}), true},
		{"conn refused", syscall.ECONNREFUSED, true},
		{"conn reset", syscall.ECONNRESET, true},
		{"flood wait", errors.New("telegram: retry after 14 (429)"), true},
		{"too many requests", errors.New("Too Many Requests: retry later"), true},
		{"bad gateway", errors.New("telegram: Bad Gateway (502)"), true},
		{"blocked", errors.New("telegram: bot was blocked by the user (403)"), false},
		{"deactivated", errors.New("telegram: user is deactivated (403)"), false},
		{"bad request", errors.New("telegram: chat not found (400)"), false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Fatalf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		want string
	}{
		{"/remind", "remind"},
		{"/Remind", "remind"},
		{"/list_reminders@remindbot", "list_reminders"},
		{"/help extra args", "help"},
		{"  /delete_reminder  ", "delete_reminder"},
		{"5 минут", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := parseCommand(tt.text); got != tt.want {
			t.Fatalf("parseCommand(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestSplitText(t *testing.T) {
	t.Parallel()
	short := "hello"
	if got := splitText(short, 10); len(got) != 1 || got[0] != short {
		t.Fatalf("splitText(short) = %v", got)
	}

	long := ""
	for i := 0; i < 50; i++ {
		long += "line of reminder text\n"
	}
	chunks := splitText(long, 200)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len([]rune(c)) > 200 {
			t.Fatalf("chunk over limit: %d runes", len([]rune(c)))
		}
	}
}
