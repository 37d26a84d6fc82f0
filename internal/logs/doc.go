// Package logs reads the daemon and per-job log files for the CLI.
//
// Last returns the final lines of a file together with the offset where it
// ended; ReadFrom continues from such an offset, holding back a trailing
// partial line until it is complete. Follow polls ReadFrom until its context
// is cancelled and restarts from the top when the file is truncated.
package logs
