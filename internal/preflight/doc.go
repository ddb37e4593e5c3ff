// Package preflight verifies the environment before a run.
//
// Checks cover directory permissions for runs, logs, state and metrics,
// ntfy reachability, and whether every pipeline step has at least one
// provider whose binary is installed and whose credentials are present.
package preflight
