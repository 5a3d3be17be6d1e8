// Package catalog maps every work kind to its default parameters: total
// effort, per-tick rate, dispatch priority, cost-multiplier weights, the
// workflow transition that fires on completion, and the buffs transitions
// may grant.
//
// Definitions are authored in CUE. The embedded schema.cue constrains the
// shape and ranges; default.cue carries the stock workflow:
//
//	CreateChange -> ReviewChange -> MergeChange -> (terminal)
//	ShortBreak   -> stimulant buff (broadcast when shared by 2+ workers)
//
// A Catalog is immutable once built and safe to share between goroutines.
// Every declared work.Kind must have a definition; a missing or malformed
// entry fails construction, so lookups never fail at runtime.
package catalog
