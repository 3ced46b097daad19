// Package kernel schedules processes (units of cognitive work such as one
// inbound message) onto the shared stream cycle.
//
// LIFECYCLE:
//
//	PENDING -> ACTIVE -> PROCESSING -> COMPLETED
//	ACTIVE -> SUSPENDED -> PENDING          (suspend / resume)
//	any non-terminal state -> TERMINATED    (terminate, absorbing)
//
// Each tick the kernel advances the stream scheduler once, then selects up
// to MaxConcurrent runnable processes by descending priority (ties broken
// by arrival order) and advances each one step. A process makes at most one
// state transition per tick.
//
// OWNERSHIP:
//
// Processes live in a generation-checked arena owned by the Kernel. Callers
// only ever see copies. A finished process stays in the table for audit until
// Reap releases it, and Reap never releases a process still linked to a
// running parent or child.
//
// CONCURRENCY:
//
// One mutex serializes ticks and every entry point, so the process table has
// a single writer at a time. A process created while a tick runs is seen by
// the next tick.
package kernel
