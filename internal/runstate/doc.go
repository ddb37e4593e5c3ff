// Package runstate persists the progress record of pipeline runs.
//
// A State lists completed steps, their outputs, per-step statuses and the
// accumulated error messages of one run id. Checkpoint is the only mutation
// path the orchestrator uses: each transition updates the record and writes
// it through a Store before returning. FileStore keeps a JSON document per run
// directory and SQLiteStore keeps the same document in a single database.
//
// A record that exists but cannot be decoded surfaces as ErrCorruptCheckpoint
// so a damaged run is never silently restarted from scratch.
package runstate
