// Package preflight provides readiness checks for the filesystem paths and
// services hlsforge depends on.
//
// The daemon runs RunAll at startup and logs failures as warnings; the
// `hlsforge status` command and GET /api/status surface the same results.
package preflight
