// Package render serializes the classified frame sequence produced by
// the scanner: human-readable text, bare hex lines, raw wire bytes,
// JSON lines, or CBOR records.
package render
