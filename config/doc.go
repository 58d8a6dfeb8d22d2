// Package config loads codec options from a YAML or JSONC file.
//
// Example redpkg.yaml:
//
//	kind: save-resource
//	imports_as_hash: true
//	min_version: 2
//	max_version: 4
//	collect: true
//	report_unresolved_weak: false
//	compression: zstd
//
// Files ending in .json or .jsonc are read as JSON with comments and
// trailing commas allowed. Every other extension is read as YAML.
package config
