package telegram

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// IsRetryable reports whether a send failure is network-class and expected
// to self-resolve. Everything else (blocked bot, deactivated user, bad
// request) is permanent for the affected chat.
//
// Telegram API errors reach us flattened to text, so flood control and
// server-side failures are matched on the description.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "retry after"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "internal server error"),
		strings.Contains(msg, "bad gateway"),
		strings.Contains(msg, "gateway timeout"),
		strings.Contains(msg, "connection reset"):
		return true
	}
	return false
}
