// Package config loads, normalizes, and validates VaultLens configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VAULTLENS_MODE and VAULTLENS_API_TOKEN. The Config type centralizes every
// knob the host runtime and CLI need: where logs and state live, how the worker
// script is located, and how the command surface is exposed.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
