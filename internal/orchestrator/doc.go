// Package orchestrator sequences pipeline steps against a persisted run record.
//
// Execute loads or creates the record for a run id, skips steps that already
// completed, runs the rest in order through step.Run, and checkpoints after
// every outcome. A failed required step ends the run as partial, or failed
// when the error is fatal; optional step failures are recorded and the run
// continues. Re-running with the same run id resumes from the last
// checkpoint.
//
// Trackers receive run, step and final events for telemetry and
// notifications without influencing the outcome.
package orchestrator
