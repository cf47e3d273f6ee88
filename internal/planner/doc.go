// Package planner computes the outstanding batch for a round: every
// candidate, in order, that is neither excluded nor already converted.
//
// Planning only reads: it consults the exclusion set and checks whether
// each derived output exists. Existence checks run on a bounded worker
// pool, but results are assembled by candidate index so the batch is
// identical for identical inputs regardless of scheduling.
package planner
