// Package config loads, validates, and normalizes Scribe configuration
// from TOML files, providing defaults suitable for local operation.
package config
