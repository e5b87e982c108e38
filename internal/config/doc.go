// Package config loads slidefetch configuration from YAML files and
// SLIDEFETCH_ environment variables, layered over built-in defaults.
package config
