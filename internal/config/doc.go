// Package config loads, normalizes, and validates newsreel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NEWSREEL_NTFY_TOPIC. The Config type centralizes every knob the CLI needs:
// run and log directories, the checkpoint backend, notification and metrics
// settings, and the ordered pipeline steps with their providers.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
