// Package store provides SQLite-backed durable storage for the engine.
//
// Three tables:
//   - events: the append-only notification journal, keyed by bus sequence
//   - process_snapshots: periodic copies of the process table
//   - memories: the long-term memory store processes search on activation
//
// Every stored payload is canonical JSON and carries a domain-separated
// content hash, so a journal can be checked for tampering or corruption
// with VerifyEvents.
//
// All reads order by seq (or tick, process_id) ascending; wall-clock time
// never orders journal rows.
package store
