// Package metrics exports run telemetry as a Prometheus textfile.
//
// Tracker plugs into the orchestrator, builds a fresh registry per run, and
// writes it to <textfile_dir>/newsreel.prom when the run finishes so
// node_exporter can scrape it. Successful step outputs are hashed and
// compared with the previous completed run to flag content that did not
// change.
package metrics
