// Package server implements the ingest service surfaces: the TCP
// listener that runs one frame scanner per connection, and the HTTP
// API exposing health, statistics, configuration, and Prometheus
// metrics.
package server
