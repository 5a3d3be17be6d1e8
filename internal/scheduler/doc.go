// Package scheduler implements the tick-driven work-assignment loop.
//
// The Scheduler is the single serialized owner of the work registry, the
// completion history, and the worker roster. Every mutation of those happens
// inside Tick, which runs one step at a time:
//
//  0. drain roster joins and submitted work
//  1. maybe spawn an entry-point item
//  2. order open items by priority, progress, and ID
//  3. dispatch ordered item i to roster worker i
//  4. drain worker reports and apply their effort
//  5. complete finished items: resolve the workflow outcome, push history,
//     forward to the journal
//  6. publish a read-only Snapshot
//
// Everything that crosses a goroutine boundary goes through a bounded
// channel. External submissions and worker deliveries never block: a full
// queue is reported to the caller (ErrInboxFull) or counted and logged
// (dropped dispatches and buffs). Workers block on the report channel,
// which the tick drains.
//
// Thread-safety model:
//   - Submit(), SubmitWork(), AddWorker(), Snapshot(): safe from any goroutine
//   - Tick(), Run(): must be called from exactly one goroutine
package scheduler
