// Package work defines the data model shared by the catalog, the scheduler,
// and the workers: work kinds, open items, worker traits and resources, the
// messages exchanged between the scheduler and its workers, and the canonical
// JSON used for snapshots and traces.
//
// This package imports nothing internal. Every other internal package imports
// work, so it stays the foundational layer with no circular dependencies.
//
// Key constraints:
//   - Item identifiers come from a monotonic Sequence and are never reused
//   - EffortApplied is clamped to [0, TotalEffort] after every update
//   - Characteristics never change after a worker is built
//   - All JSON tags use snake_case
package work
