// Package config loads engine configuration.
//
// Load dispatches on the file extension:
//
//	.cue         unified with the embedded schema, then decoded
//	.yaml, .yml  strict YAML, unknown keys rejected
//	.toml        TOML, unknown keys rejected
//
// Every format overlays Default: keys a file leaves out keep their default
// values. The result is validated before it is returned.
package config
