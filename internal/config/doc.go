// Package config handles loading and validation of the ingest service
// configuration from a YAML file.
package config
