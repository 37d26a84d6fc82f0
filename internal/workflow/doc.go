// Package workflow runs the transcoding queue.
//
// The Manager owns an in-memory FIFO of job names and a single worker
// goroutine. Enqueue records a Pending status and wakes the worker; the worker
// moves each job to Processing, hands it to the transcode.Executor, removes
// the uploaded source on success, and records the terminal status. Store
// write failures are logged and never stop the loop, so the queue keeps
// draining even when the database misbehaves.
//
// The queue itself is not persisted. On Start, records left in Processing by
// a previous run are marked Failed; Pending leftovers are reported as orphans
// until an operator calls RequeueOrphans.
package workflow
