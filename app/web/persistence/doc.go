// Package persistence keeps analysis and question history in SQLite (WAL mode).
// Skills and ranking tables are stored as json columns, timestamps as unix milliseconds.
package persistence
