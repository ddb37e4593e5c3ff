// Package services defines shared utilities consumed by pipeline steps,
// providers, and the orchestrator.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, step names, provider names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (input, execution, providers exhausted, fatal) by the single
//     place that decides run-level containment.
//
// Use these helpers when wiring new steps so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
