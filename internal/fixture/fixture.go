// Package fixture manufactures sample byte streams for exercising the
// frame scanner: valid frames, frames with corrupted length fields,
// incomplete frames, time frames, and garbage runs.
package fixture

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/motleylight/LogParser/internal/frame"
)

// Generator produces test streams. A fixed seed makes output
// reproducible.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Frame builds a valid regular frame around payload.
func (g *Generator) Frame(payload []byte) []byte {
	out, err := frame.EncodeRegular(payload)
	if err != nil {
		panic(fmt.Sprintf("fixture payload exceeds wire format: %v", err))
	}
	return out
}

// FrameBadLength builds a frame whose length field is off by a few
// bytes in either direction, like real-world length corruption.
func (g *Generator) FrameBadLength(payload []byte) []byte {
	wrong := len(payload)
	if g.rnd.Intn(2) == 0 {
		wrong -= 1 + g.rnd.Intn(5)
		if wrong < 0 {
			wrong = 0
		}
	} else {
		wrong += 1 + g.rnd.Intn(5)
	}

	out := make([]byte, 0, frame.RegularMinSize+len(payload))
	out = append(out, frame.StartMarker)
	out = binary.BigEndian.AppendUint16(out, uint16(wrong))
	out = append(out, payload...)
	out = append(out, frame.StartMarker)
	return out
}

// IncompleteFrame builds a frame start with a correct length field but
// no payload tail or closing marker.
func (g *Generator) IncompleteFrame(payload []byte, keep int) []byte {
	if keep > len(payload) {
		keep = len(payload)
	}

	out := make([]byte, 0, 1+frame.LengthFieldSize+keep)
	out = append(out, frame.StartMarker)
	out = binary.BigEndian.AppendUint16(out, uint16(len(payload)))
	out = append(out, payload[:keep]...)
	return out
}

// TimeFrame builds a complete 8-byte time frame.
func (g *Generator) TimeFrame(timestamp uint64) []byte {
	return frame.EncodeTime(timestamp)
}

// Garbage returns n random bytes.
func (g *Generator) Garbage(n int) []byte {
	out := make([]byte, n)
	g.rnd.Read(out)
	return out
}

// Mixed produces a stream interleaving valid frames, corrupted
// frames, incomplete frames, time frames, and garbage, shuffled the
// way a damaged capture looks.
func (g *Generator) Mixed() []byte {
	var parts [][]byte

	for i := 0; i < 5; i++ {
		parts = append(parts, g.Frame([]byte(fmt.Sprintf("Frame %d: Test payload", i))))
	}
	for i := 0; i < 3; i++ {
		parts = append(parts, g.FrameBadLength([]byte(fmt.Sprintf("Bad length frame %d", i))))
	}
	for i := 0; i < 2; i++ {
		payload := []byte(fmt.Sprintf("Incomplete frame %d", i))
		parts = append(parts, g.IncompleteFrame(payload, len(payload)))
	}
	for i := 0; i < 4; i++ {
		parts = append(parts, g.TimeFrame(uint64(i)*1000))
	}
	parts = append(parts, g.Garbage(1+g.rnd.Intn(10)))

	g.rnd.Shuffle(len(parts), func(i, j int) {
		parts[i], parts[j] = parts[j], parts[i]
	})

	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Corpus returns the named sample streams the original tooling
// shipped, keyed by case name.
func Corpus(seed int64) map[string][]byte {
	g := NewGenerator(seed)

	timeSeries := make([]byte, 0, 5*frame.TimeFrameSize)
	for i := 0; i < 5; i++ {
		timeSeries = append(timeSeries, g.TimeFrame(uint64(i)*1000)...)
	}

	contiguous := make([]byte, 0, 3*frame.TimeFrameSize)
	for i := 0; i < 3; i++ {
		contiguous = append(contiguous, g.TimeFrame(0x123456+uint64(i))...)
	}

	markerPayload := append([]byte("Hello"), frame.TimeMarker...)
	markerPayload = append(markerPayload, []byte("World")...)

	return map[string][]byte{
		"simple_valid": concat(
			g.Frame([]byte("Hello")),
			g.Frame([]byte("World")),
		),
		"with_time_frames": concat(
			g.Frame([]byte("Frame1")),
			g.TimeFrame(1000),
			g.Frame([]byte("Frame2")),
			g.TimeFrame(2000),
		),
		"mixed_bad_frames": g.Mixed(),
		"incomplete_at_end": concat(
			g.Frame([]byte("Complete")),
			g.IncompleteFrame([]byte("start"), 5),
		),
		"hex_input_example":               g.Frame([]byte("Hello")),
		"large_frame":                     g.Frame(bytesOf('X', 1000)),
		"zero_length_frame":               g.Frame(nil),
		"time_frame_series":               timeSeries,
		"garbage_only":                    g.Garbage(50),
		"empty_input":                     {},
		"unicode_payload":                 g.Frame([]byte("测试")),
		"multiple_time_frames_contiguous": contiguous,
		"time_frame_inside_frame":         g.Frame(markerPayload),
	}
}

// WriteCorpus writes every corpus case to dir as test_<name>.bin plus
// a test_<name>.hex sibling holding the hex encoding.
func WriteCorpus(dir string, seed int64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create fixture dir %s: %w", dir, err)
	}

	for name, data := range Corpus(seed) {
		binPath := filepath.Join(dir, fmt.Sprintf("test_%s.bin", name))
		if err := os.WriteFile(binPath, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", binPath, err)
		}

		hexPath := filepath.Join(dir, fmt.Sprintf("test_%s.hex", name))
		if err := os.WriteFile(hexPath, []byte(hex.EncodeToString(data)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", hexPath, err)
		}
	}

	return nil
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func bytesOf(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
