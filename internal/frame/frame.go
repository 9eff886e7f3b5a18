package frame

import (
	"encoding/binary"
	"fmt"
)

// Wire format constants
const (
	// StartMarker begins and ends a regular frame
	StartMarker byte = 0x7E

	// TimeMarkerByte appears twice at the start of a time frame
	TimeMarkerByte byte = 0xAA

	// Field sizes
	LengthFieldSize = 2 // big-endian uint16 payload length
	TimePayloadSize = 6 // 48-bit big-endian timestamp

	// Derived sizes
	TimeMarkerSize = 2
	TimeFrameSize  = TimeMarkerSize + TimePayloadSize // 8 bytes total
	RegularMinSize = 1 + LengthFieldSize + 1          // empty payload
	MaxPayloadSize = 0xFFFF                           // limit of the 16-bit length field
)

// TimeMarker is the two-byte sequence that begins a time frame.
var TimeMarker = []byte{TimeMarkerByte, TimeMarkerByte}

// Kind identifies which variant a Frame carries.
type Kind int

const (
	KindRegular Kind = iota // validated marker-delimited frame
	KindTime                // fixed-size timestamp frame
	KindInvalid             // span that failed classification
)

// String returns a human-readable kind name
func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "frame"
	case KindTime:
		return "time_frame"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Reason classifies why a byte span could not be parsed as a frame
type Reason int

const (
	// ReasonNoise marks bytes between frames that never formed a recognizable frame start
	ReasonNoise Reason = iota
	// ReasonBadLength marks a frame whose declared length disagrees with the actual frame end
	ReasonBadLength
	// ReasonMissingCloseMarker marks a frame whose closing byte is not the expected marker
	ReasonMissingCloseMarker
	// ReasonTruncated marks a frame cut off by end of stream
	ReasonTruncated
)

// String returns a human-readable reason name
func (r Reason) String() string {
	switch r {
	case ReasonNoise:
		return "noise"
	case ReasonBadLength:
		return "bad_length"
	case ReasonMissingCloseMarker:
		return "missing_close_marker"
	case ReasonTruncated:
		return "truncated"
	default:
		return fmt.Sprintf("Unknown(%d)", int(r))
	}
}

// Regular represents a fully parsed marker-delimited frame
type Regular struct {
	Payload        []byte // payload bytes between the length field and the closing marker
	DeclaredLength int    // value of the 16-bit length field
}

// Time represents an 8-byte time frame
type Time struct {
	Raw       [TimePayloadSize]byte // timestamp bytes as they appeared on the wire
	Timestamp uint64                // decoded 48-bit value, only set when Decoded is true
	Decoded   bool
}

// Invalid represents a span of bytes that failed validation or never
// formed a frame start.
type Invalid struct {
	Reason Reason
}

// Frame is one classified unit extracted from the byte stream. Raw
// always holds the exact wire bytes the unit covers, including markers
// and length field for regular frames. Exactly one of Regular, Time,
// Invalid is non-nil, matching Kind.
type Frame struct {
	Kind    Kind
	Raw     []byte
	Regular *Regular
	Time    *Time
	Invalid *Invalid
}

// String returns a short human-readable summary of the frame
func (f Frame) String() string {
	switch f.Kind {
	case KindRegular:
		return fmt.Sprintf("Frame{len=%d}", f.Regular.DeclaredLength)
	case KindTime:
		if f.Time.Decoded {
			return fmt.Sprintf("TimeFrame{ts=%d}", f.Time.Timestamp)
		}
		return "TimeFrame{}"
	case KindInvalid:
		return fmt.Sprintf("Invalid{reason=%s, bytes=%d}", f.Invalid.Reason, len(f.Raw))
	default:
		return "Frame{?}"
	}
}

// EncodeRegular builds a complete on-wire regular frame around payload:
// start marker, big-endian length, payload, closing marker.
func EncodeRegular(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes exceeds %d", len(payload), MaxPayloadSize)
	}

	out := make([]byte, 0, RegularMinSize+len(payload))
	out = append(out, StartMarker)
	out = binary.BigEndian.AppendUint16(out, uint16(len(payload)))
	out = append(out, payload...)
	out = append(out, StartMarker)
	return out, nil
}

// EncodeTime builds a complete 8-byte time frame. Timestamps wider than
// 48 bits are truncated to their low 6 bytes.
func EncodeTime(timestamp uint64) []byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], timestamp)

	out := make([]byte, 0, TimeFrameSize)
	out = append(out, TimeMarker...)
	out = append(out, ts[2:]...)
	return out
}

// DecodeTimestamp interprets 6 raw timestamp bytes as an unsigned
// big-endian integer.
func DecodeTimestamp(raw []byte) (uint64, error) {
	if len(raw) != TimePayloadSize {
		return 0, fmt.Errorf("timestamp must be %d bytes, got %d", TimePayloadSize, len(raw))
	}

	var ts uint64
	for _, b := range raw {
		ts = ts<<8 | uint64(b)
	}
	return ts, nil
}
