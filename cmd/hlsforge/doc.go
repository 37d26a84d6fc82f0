// Command hlsforge is the operator CLI for the hlsforge transcoding daemon.
//
// Most commands talk to a running daemon over its Unix socket. Read-only
// queue commands fall back to opening the status store directly when the
// daemon is offline, so records can still be inspected after a crash.
package main
