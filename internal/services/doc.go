// Package services defines shared utilities consumed by the source adapters,
// the eligibility engine and the action coordinator.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, item keys, and source names for
//     logging.
//   - Structured error markers plus the Wrap helper that separate transient
//     source failures (degrade to unknown), store failures (fatal for the run)
//     and partial action failures (logged and recorded).
//
// Use these helpers when wiring new adapters so failure handling stays uniform
// across the sweep.
package services
