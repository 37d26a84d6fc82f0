// Package daemon coordinates the long-running hlsforge process.
//
// It wires configuration, the status store, the workflow manager and the
// HTTP ingress into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon also exposes the maintenance helpers the
// IPC server forwards to (manual file ingestion, retries, clearing terminal
// records, health summaries and test notifications).
//
// Keep orchestration logic here: transcoding and queueing live in their own
// packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
