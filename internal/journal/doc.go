// Package journal records completed work to SQLite.
//
// The journal is write-only from the scheduler's point of view: runs and
// completions are appended and never reloaded into a scheduler. Writes are
// idempotent, so recording the same completion twice keeps one row.
//
// The scheduler never touches the database directly. It hands completions
// to a Writer, whose goroutine drains a bounded channel; a full channel
// rejects the completion with ErrJournalBacklog instead of stalling a tick.
package journal
