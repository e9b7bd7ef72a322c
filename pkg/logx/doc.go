// Package logx wraps zerolog behind a small structured-logging API with
// hot-swappable sinks (console, JSON file).
package logx
