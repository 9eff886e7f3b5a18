// Package publish forwards classified frames to NATS so downstream
// consumers can subscribe to the extracted frame stream without
// talking to the ingest service directly.
package publish
