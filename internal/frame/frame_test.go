package frame

import (
	"bytes"
	"testing"
)

func TestEncodeRegular(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		expected []byte
	}{
		{
			name:     "short payload",
			payload:  []byte("Hello"),
			expected: []byte{0x7E, 0x00, 0x05, 0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x7E},
		},
		{
			name:     "empty payload",
			payload:  nil,
			expected: []byte{0x7E, 0x00, 0x00, 0x7E},
		},
		{
			name:     "marker bytes allowed inside payload",
			payload:  []byte{0x7E, 0xAA, 0xAA},
			expected: []byte{0x7E, 0x00, 0x03, 0x7E, 0xAA, 0xAA, 0x7E},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeRegular(tt.payload)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("got % X, want % X", got, tt.expected)
			}
		})
	}
}

func TestEncodeRegularTooLarge(t *testing.T) {
	if _, err := EncodeRegular(make([]byte, MaxPayloadSize+1)); err == nil {
		t.Fatal("expected error for payload above the 16-bit length range")
	}
}

func TestEncodeRegularMaxSize(t *testing.T) {
	payload := make([]byte, MaxPayloadSize)
	got, err := EncodeRegular(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != MaxPayloadSize+RegularMinSize {
		t.Errorf("expected %d bytes, got %d", MaxPayloadSize+RegularMinSize, len(got))
	}
	if got[1] != 0xFF || got[2] != 0xFF {
		t.Errorf("expected length field FF FF, got %02X %02X", got[1], got[2])
	}
}

func TestEncodeTime(t *testing.T) {
	tests := []struct {
		name      string
		timestamp uint64
		expected  []byte
	}{
		{
			name:      "small value",
			timestamp: 1000,
			expected:  []byte{0xAA, 0xAA, 0x00, 0x00, 0x00, 0x00, 0x03, 0xE8},
		},
		{
			name:      "full 48 bits",
			timestamp: 0x0123456789AB,
			expected:  []byte{0xAA, 0xAA, 0x01, 0x23, 0x45, 0x67, 0x89, 0xAB},
		},
		{
			name:      "wider than 48 bits truncates",
			timestamp: 0xFF0123456789AB,
			expected:  []byte{0xAA, 0xAA, 0x01, 0x23, 0x45, 0x67, 0x89, 0xAB},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeTime(tt.timestamp)
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("got % X, want % X", got, tt.expected)
			}
		})
	}
}

func TestDecodeTimestamp(t *testing.T) {
	ts, err := DecodeTimestamp([]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != 0x0123456789AB {
		t.Errorf("got 0x%X, want 0x0123456789AB", ts)
	}

	if _, err := DecodeTimestamp([]byte{0x01, 0x02}); err == nil {
		t.Error("expected error for short input")
	}
}

func TestEncodeDecodeTimeRoundTrip(t *testing.T) {
	for _, ts := range []uint64{0, 1, 0xFFFF, 0xFFFFFFFFFFFF} {
		wire := EncodeTime(ts)
		got, err := DecodeTimestamp(wire[TimeMarkerSize:])
		if err != nil {
			t.Fatalf("ts %d: %v", ts, err)
		}
		if got != ts {
			t.Errorf("ts %d: round-tripped to %d", ts, got)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindRegular.String() != "frame" || KindTime.String() != "time_frame" || KindInvalid.String() != "invalid" {
		t.Error("unexpected kind names")
	}
}

func TestReasonString(t *testing.T) {
	reasons := map[Reason]string{
		ReasonNoise:              "noise",
		ReasonBadLength:          "bad_length",
		ReasonMissingCloseMarker: "missing_close_marker",
		ReasonTruncated:          "truncated",
	}
	for r, want := range reasons {
		if r.String() != want {
			t.Errorf("reason %d: got %q, want %q", int(r), r.String(), want)
		}
	}
}
