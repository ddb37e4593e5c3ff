// Package notifications delivers run summaries via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and degrades to a no-op when no topic is set. Tracker hooks the
// service into the orchestrator so every finished run produces one summary
// listing its status, output count and errors.
package notifications
