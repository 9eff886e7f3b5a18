package source

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// FromFile opens a binary log file for scanning.
func FromFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file %s: %w", path, err)
	}
	return f, nil
}

// FromHex decodes a hexadecimal text encoding of the stream. The
// encoding tolerates whitespace, colon separators, and an optional 0x
// prefix.
func FromHex(s string) (io.ReadCloser, error) {
	data, err := DecodeHex(s)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// FromHexReader reads all of r as hexadecimal text and decodes it.
// Used when the hex encoding itself arrives on stdin.
func FromHexReader(r io.Reader) (io.ReadCloser, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read hex input: %w", err)
	}
	return FromHex(string(raw))
}

// Stdin returns standard input as a non-closing byte source.
func Stdin() io.ReadCloser {
	return io.NopCloser(os.Stdin)
}

// DecodeHex converts a hex string to bytes, stripping whitespace,
// colons, and an optional leading 0x.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, ":", "")

	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	return data, nil
}
