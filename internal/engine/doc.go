// Package engine drives the kernel on a fixed cadence and connects it to
// its collaborators and journal.
//
// ARCHITECTURE:
//
// Cadence loop:
// Run ticks on a time.Ticker regardless of how much work is waiting. Each
// Step is one synchronous pass:
//  1. Fold collaborator results that arrived since the last tick
//  2. Tick the kernel (streams, then scheduled processes)
//  3. Dispatch collaborator calls for this tick's transitions
//  4. Append buffered events to the journal, snapshot on schedule
//
// Collaborators:
// A process entering ACTIVE triggers a memory search; entering PROCESSING
// triggers a completion request. Calls run in their own goroutines with
// collab.Retry and hand results back through a FIFO queue, so the kernel
// only ever changes inside a tick or an entry point. A failed completion
// is re-dispatched on a later tick until the process's QuotaEnforcer
// budget runs out; the process keeps its last good state meanwhile and
// still completes by the cycle rule.
//
// Journal:
// The engine subscribes to its own bus and drains the subscription after
// every tick. Sequence numbers come from the bus clock, never wall time.
package engine
