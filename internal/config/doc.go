// Package config loads, normalizes, and validates ShowSweep configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PLEX_TOKEN and SHOWSWEEP_CONFIG. The Config type centralizes every knob the
// sweep pipeline and CLI need, so service credentials, cache TTLs, and rate
// budgets are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
