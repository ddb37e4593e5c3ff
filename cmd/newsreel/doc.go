// Package main hosts the newsreel CLI entrypoint and command graph.
//
// The Cobra-based command tree loads configuration, builds the configured
// pipeline, and hands it to the orchestrator. Runs are keyed by run id: a new
// id starts a fresh run, an existing id resumes it from its checkpoint. The
// remaining commands inspect run history, verify the environment, scaffold
// configuration, and exercise the notification channel.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through a dedicated command or flag here.
package main
