// Package config loads, validates, and defaults the TOML configuration file
// that tunes external tool names, resource ceilings, and dispatch behaviour.
// Per-run inputs (input directory, reference, annotation, layout, output)
// arrive via CLI flags, not this file.
package config
