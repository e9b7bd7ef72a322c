// Package storage persists reminder records in SQLite.
//
// Every create/delete is committed before the call returns, so recovery on
// process start always sees the latest committed state.
package storage
