// Package config loads, normalizes, and validates the docsync TOML
// configuration. Loading never mutates the file; all path fields in the
// returned Config are expanded and absolute.
package config
