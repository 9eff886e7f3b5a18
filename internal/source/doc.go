// Package source selects and opens the byte stream the scanner reads:
// a binary file, a hexadecimal text encoding, or standard input. The
// scanner never cares where bytes came from; every source is a plain
// io.ReadCloser.
package source
