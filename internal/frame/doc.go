// Package frame defines the two on-wire frame formats handled by the
// scanner: marker-delimited regular frames with a 16-bit big-endian
// length field, and fixed-size time frames carrying a 48-bit timestamp.
// It also provides the encoding helpers used by the fixture generator
// and the round-trip tests.
package frame
