// Package sqlite persists labeling runs in a SQLite database.
//
// A run row records the configuration and outcome of one batch; every
// labeled frame and every (frame, horizon) label is stored beneath it so
// label distributions can be queried without re-reading the JSON export.
// The schema is managed by embedded golang-migrate migrations.
package sqlite
