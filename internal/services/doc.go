// Package services defines shared utilities consumed by the transcoding
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job names, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the pipeline's error taxonomy (admission, transcoding, cleanup,
//     status write).
//
// Use these helpers when wiring new pipeline code so operational behaviour
// (error handling, observability) stays uniform.
package services
