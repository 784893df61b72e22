// Package config loads, validates, and normalizes the sortd configuration
// file (TOML). It owns path expansion and environment overrides for
// credentials so other packages receive ready-to-use values.
package config
