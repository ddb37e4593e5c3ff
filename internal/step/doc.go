// Package step defines the contract every pipeline stage satisfies.
//
// A Step names itself, declares a deterministic output location, and performs
// its work in Execute. Run wraps Execute with existence-based checkpointing:
// an output already on disk is returned without re-running the step, and a
// step that claims success without leaving its artifact is an ExecutionError.
// Upstream outputs arrive as Inputs keyed by the producing step's name.
package step
