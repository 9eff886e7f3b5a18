// Package scanner implements the incremental frame-boundary scanner.
// It consumes a byte stream in arbitrary-sized chunks, recognizes
// regular and time frame markers, validates declared lengths, and
// classifies everything else as invalid segments without ever losing
// synchronization. A single Scanner handles exactly one logical byte
// stream and is not safe for concurrent use.
package scanner
