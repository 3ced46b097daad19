// Package canon renders values as canonical JSON and derives content
// hashes from it.
//
// Canonical form: object keys sorted by UTF-16 code units, strings NFC
// normalized, no insignificant whitespace, no HTML escaping. Numbers keep
// the shortest form encoding/json produces. Two values that mean the same
// thing marshal to the same bytes, so hashes are stable across runs.
package canon
