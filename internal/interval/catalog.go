// Package interval maps the fixed set of human-readable reminder cadence
// labels to durations. The labels are presented to the user as-is, so the
// table order is the menu order.
package interval

import (
	"errors"
	"time"
)

// ErrUnknownLabel is returned by Resolve for any label outside the catalog.
var ErrUnknownLabel = errors.New("unknown interval label")

type entry struct {
	label   string
	seconds int64
}

// The canonical catalog. Order matters: Labels() and KeyboardRows() present
// entries in this order.
var catalog = []entry{
	{"1 минута", 60},
	{"5 минут", 300},
	{"10 минут", 600},
	{"15 минут", 900},
	{"30 минут", 1800},
	{"1 час", 3600},
	{"2 часа", 7200},
	{"3 часа", 10800},
	{"6 часов", 21600},
	{"12 часов", 43200},
	{"24 часа", 86400},
	{"2 дня", 172800},
	{"1 неделя", 604800},
	{"2 недели", 1209600},
}

// Resolve maps a label to its duration.
func Resolve(label string) (time.Duration, error) {
	for _, e := range catalog {
		if e.label == label {
			return time.Duration(e.seconds) * time.Second, nil
		}
	}
	return 0, ErrUnknownLabel
}

// Valid reports whether label is in the catalog.
func Valid(label string) bool {
	_, err := Resolve(label)
	return err == nil
}

// Labels returns all valid labels in presentation order.
func Labels() []string {
	out := make([]string, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e.label)
	}
	return out
}

// KeyboardRows lays the labels out two per row for reply keyboards.
func KeyboardRows() [][]string {
	rows := make([][]string, 0, (len(catalog)+1)/2)
	for i := 0; i < len(catalog); i += 2 {
		end := i + 2
		if end > len(catalog) {
			end = len(catalog)
		}
		row := make([]string, 0, 2)
		for _, e := range catalog[i:end] {
			row = append(row, e.label)
		}
		rows = append(rows, row)
	}
	return rows
}
