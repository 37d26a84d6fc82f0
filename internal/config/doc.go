// Package config loads, normalizes, and validates hlsforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, overlays an optional .env file, and honours
// environment overrides such as HLSFORGE_API_TOKEN. The Config type
// centralizes every knob the daemon and CLI need, so upload/output
// directories, the store backend and ffmpeg renditions are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
