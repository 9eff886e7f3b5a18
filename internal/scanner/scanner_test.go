package scanner

import (
	"bytes"
	"testing"

	"github.com/motleylight/LogParser/internal/frame"
)

// collect feeds the input in the given chunk sizes (the last size is
// reused until the input is exhausted), finishes the stream, and
// returns every emitted frame.
func collect(t *testing.T, cfg Config, input []byte, chunkSize int) ([]frame.Frame, Statistics) {
	t.Helper()

	s := New(cfg)
	var frames []frame.Frame

	for len(input) > 0 {
		n := chunkSize
		if n > len(input) {
			n = len(input)
		}
		s.Feed(input[:n])
		input = input[n:]

		for {
			f, ok := s.Next()
			if !ok {
				break
			}
			frames = append(frames, f)
		}
	}

	s.Finish()
	for {
		f, ok := s.Next()
		if !ok {
			break
		}
		frames = append(frames, f)
	}

	return frames, s.Stats()
}

func TestScanSingleRegularFrame(t *testing.T) {
	input := []byte{0x7E, 0x00, 0x05, 0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x7E}

	frames, stats := collect(t, DefaultConfig(), input, len(input))

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	f := frames[0]
	if f.Kind != frame.KindRegular {
		t.Fatalf("expected regular frame, got %s", f.Kind)
	}
	if !bytes.Equal(f.Regular.Payload, []byte("Hello")) {
		t.Errorf("payload mismatch: got % X", f.Regular.Payload)
	}
	if f.Regular.DeclaredLength != 5 {
		t.Errorf("expected declared length 5, got %d", f.Regular.DeclaredLength)
	}
	if !bytes.Equal(f.Raw, input) {
		t.Errorf("raw bytes mismatch: got % X", f.Raw)
	}
	if stats.FramesFound != 1 {
		t.Errorf("expected frames_found=1, got %d", stats.FramesFound)
	}
	if stats.BytesProcessed != 9 {
		t.Errorf("expected bytes_processed=9, got %d", stats.BytesProcessed)
	}
}

func TestScanTimeFrame(t *testing.T) {
	input := []byte{0xAA, 0xAA, 0x01, 0x23, 0x45, 0x67, 0x89, 0xAB}

	tests := []struct {
		name   string
		decode bool
	}{
		{name: "raw only", decode: false},
		{name: "decoded", decode: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DecodeTimestamps = tt.decode

			frames, stats := collect(t, cfg, input, len(input))

			if len(frames) != 1 {
				t.Fatalf("expected 1 frame, got %d", len(frames))
			}
			f := frames[0]
			if f.Kind != frame.KindTime {
				t.Fatalf("expected time frame, got %s", f.Kind)
			}
			want := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB}
			if !bytes.Equal(f.Time.Raw[:], want) {
				t.Errorf("raw timestamp mismatch: got % X", f.Time.Raw[:])
			}
			if f.Time.Decoded != tt.decode {
				t.Errorf("expected decoded=%v", tt.decode)
			}
			if tt.decode && f.Time.Timestamp != 0x0123456789AB {
				t.Errorf("expected timestamp 0x0123456789AB, got 0x%X", f.Time.Timestamp)
			}
			if stats.TimeFramesFound != 1 {
				t.Errorf("expected time_frames_found=1, got %d", stats.TimeFramesFound)
			}
			if stats.BytesProcessed != 8 {
				t.Errorf("expected bytes_processed=8, got %d", stats.BytesProcessed)
			}
		})
	}
}

func TestMissingCloseMarker(t *testing.T) {
	// Closing byte is 0x00 instead of the marker.
	input := []byte{0x7E, 0x00, 0x05, 0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x00}

	frames, stats := collect(t, DefaultConfig(), input, len(input))

	if len(frames) != 1 {
		t.Fatalf("expected 1 invalid segment, got %d frames", len(frames))
	}
	f := frames[0]
	if f.Kind != frame.KindInvalid {
		t.Fatalf("expected invalid segment, got %s", f.Kind)
	}
	if f.Invalid.Reason != frame.ReasonMissingCloseMarker {
		t.Errorf("expected reason missing_close_marker, got %s", f.Invalid.Reason)
	}
	if !bytes.Equal(f.Raw, input) {
		t.Errorf("expected segment to cover the whole span, got % X", f.Raw)
	}
	if stats.InvalidFrames != 1 {
		t.Errorf("expected invalid_frames=1, got %d", stats.InvalidFrames)
	}
	if stats.BytesProcessed != uint64(len(input)) {
		t.Errorf("expected bytes_processed=%d, got %d", len(input), stats.BytesProcessed)
	}
}

func TestTruncatedFrame(t *testing.T) {
	input := []byte{0x7E, 0x00, 0x05, 0x48, 0x65}

	frames, stats := collect(t, DefaultConfig(), input, len(input))

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	f := frames[0]
	if f.Kind != frame.KindInvalid || f.Invalid.Reason != frame.ReasonTruncated {
		t.Fatalf("expected truncated invalid segment, got %s", f)
	}
	if !bytes.Equal(f.Raw, input) {
		t.Errorf("expected segment to cover all 5 bytes, got % X", f.Raw)
	}
	if stats.InvalidFrames != 1 {
		t.Errorf("expected invalid_frames=1, got %d", stats.InvalidFrames)
	}
	if stats.BytesProcessed != 5 {
		t.Errorf("expected bytes_processed=5, got %d", stats.BytesProcessed)
	}
}

func TestRoundTrip(t *testing.T) {
	payloadSizes := []int{0, 1, 5, 255, 256, 4096, frame.MaxPayloadSize}

	for _, size := range payloadSizes {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i)
		}

		encoded, err := frame.EncodeRegular(payload)
		if err != nil {
			t.Fatalf("encode payload of %d bytes: %v", size, err)
		}

		frames, stats := collect(t, DefaultConfig(), encoded, len(encoded))

		if len(frames) != 1 {
			t.Fatalf("size %d: expected 1 frame, got %d", size, len(frames))
		}
		f := frames[0]
		if f.Kind != frame.KindRegular {
			t.Fatalf("size %d: expected regular frame, got %s", size, f.Kind)
		}
		if f.Regular.DeclaredLength != size {
			t.Errorf("size %d: declared length %d", size, f.Regular.DeclaredLength)
		}
		if !bytes.Equal(f.Regular.Payload, payload) {
			t.Errorf("size %d: payload mismatch", size)
		}
		if stats.BytesProcessed != uint64(len(encoded)) {
			t.Errorf("size %d: bytes_processed=%d, fed %d", size, stats.BytesProcessed, len(encoded))
		}
	}
}

func TestStreamingInvariance(t *testing.T) {
	// A valid stream must produce identical results regardless of how
	// it is chunked, down to 1-byte feeds.
	var input []byte
	f1, _ := frame.EncodeRegular([]byte("first frame"))
	f2, _ := frame.EncodeRegular(nil)
	f3, _ := frame.EncodeRegular([]byte{0xAA, 0xAA, 0x7D})
	input = append(input, f1...)
	input = append(input, frame.EncodeTime(1000)...)
	input = append(input, f2...)
	input = append(input, frame.EncodeTime(0xFFFFFFFFFFFF)...)
	input = append(input, f3...)

	cfg := DefaultConfig()
	cfg.DecodeTimestamps = true

	whole, wholeStats := collect(t, cfg, input, len(input))

	for _, chunkSize := range []int{1, 2, 3, 7, 4096} {
		chunked, chunkedStats := collect(t, cfg, input, chunkSize)

		if len(chunked) != len(whole) {
			t.Fatalf("chunk size %d: got %d frames, want %d", chunkSize, len(chunked), len(whole))
		}
		for i := range whole {
			if whole[i].Kind != chunked[i].Kind {
				t.Errorf("chunk size %d: frame %d kind %s, want %s",
					chunkSize, i, chunked[i].Kind, whole[i].Kind)
			}
			if !bytes.Equal(whole[i].Raw, chunked[i].Raw) {
				t.Errorf("chunk size %d: frame %d raw bytes differ", chunkSize, i)
			}
		}
		if chunkedStats != wholeStats {
			t.Errorf("chunk size %d: stats %+v, want %+v", chunkSize, chunkedStats, wholeStats)
		}
	}
}

func TestResyncAfterCorruptFrame(t *testing.T) {
	// A single corrupted frame between two valid ones must cost
	// exactly one invalid segment.
	good1, _ := frame.EncodeRegular([]byte("before"))
	good2, _ := frame.EncodeRegular([]byte("after"))
	corrupt := []byte{0x7E, 0x00, 0x04, 0x01, 0x02, 0x03, 0x04, 0x99} // close byte wrong

	var input []byte
	input = append(input, good1...)
	input = append(input, corrupt...)
	input = append(input, good2...)

	frames, stats := collect(t, DefaultConfig(), input, len(input))

	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	if frames[0].Kind != frame.KindRegular || !bytes.Equal(frames[0].Regular.Payload, []byte("before")) {
		t.Errorf("first valid frame not recovered: %s", frames[0])
	}
	if frames[1].Kind != frame.KindInvalid {
		t.Fatalf("expected invalid segment in the middle, got %s", frames[1])
	}
	if frames[1].Invalid.Reason != frame.ReasonMissingCloseMarker {
		t.Errorf("expected reason missing_close_marker, got %s", frames[1].Invalid.Reason)
	}
	if !bytes.Equal(frames[1].Raw, corrupt) {
		t.Errorf("invalid segment should cover the corrupt span, got % X", frames[1].Raw)
	}
	if frames[2].Kind != frame.KindRegular || !bytes.Equal(frames[2].Regular.Payload, []byte("after")) {
		t.Errorf("second valid frame not recovered: %s", frames[2])
	}
	if stats.InvalidFrames != 1 {
		t.Errorf("expected invalid_frames=1, got %d", stats.InvalidFrames)
	}
}

func TestResyncRecoversEmbeddedMarker(t *testing.T) {
	// The length field claims 4 bytes but the real frame closed after
	// 2; the embedded close marker must not be skipped, so the valid
	// time frame right behind it is still found.
	input := []byte{0x7E, 0x00, 0x04, 0x01, 0x02}
	input = append(input, frame.EncodeTime(42)...)

	frames, _ := collect(t, DefaultConfig(), input, len(input))

	var timeFrames int
	for _, f := range frames {
		if f.Kind == frame.KindTime {
			timeFrames++
		}
	}
	if timeFrames != 1 {
		t.Fatalf("expected the trailing time frame to be recovered, frames: %v", frames)
	}
}

func TestValidationDisabled(t *testing.T) {
	// Correct length, corrupted close byte: accepted without
	// validation, rejected with it.
	input := []byte{0x7E, 0x00, 0x03, 0x0A, 0x0B, 0x0C, 0x42}

	cfg := DefaultConfig()
	cfg.ValidateLength = false

	frames, stats := collect(t, cfg, input, len(input))

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	f := frames[0]
	if f.Kind != frame.KindRegular {
		t.Fatalf("expected regular frame without validation, got %s", f.Kind)
	}
	if !bytes.Equal(f.Regular.Payload, []byte{0x0A, 0x0B, 0x0C}) {
		t.Errorf("payload mismatch: got % X", f.Regular.Payload)
	}
	if stats.FramesFound != 1 || stats.InvalidFrames != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestNoiseBeforeFrame(t *testing.T) {
	noise := []byte{0x01, 0x02, 0x03}
	valid, _ := frame.EncodeRegular([]byte("ok"))
	input := append(append([]byte{}, noise...), valid...)

	frames, stats := collect(t, DefaultConfig(), input, len(input))

	if len(frames) != 2 {
		t.Fatalf("expected noise segment plus frame, got %d frames", len(frames))
	}
	if frames[0].Kind != frame.KindInvalid || frames[0].Invalid.Reason != frame.ReasonNoise {
		t.Fatalf("expected leading noise segment, got %s", frames[0])
	}
	if !bytes.Equal(frames[0].Raw, noise) {
		t.Errorf("noise segment mismatch: got % X", frames[0].Raw)
	}
	if frames[1].Kind != frame.KindRegular {
		t.Errorf("expected frame after noise, got %s", frames[1])
	}
	if stats.InvalidFrames != 1 || stats.FramesFound != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestNoiseOnly(t *testing.T) {
	input := []byte{0x10, 0x20, 0x30, 0x40}

	frames, stats := collect(t, DefaultConfig(), input, len(input))

	if len(frames) != 1 {
		t.Fatalf("expected a single noise segment, got %d frames", len(frames))
	}
	if frames[0].Invalid.Reason != frame.ReasonNoise {
		t.Errorf("expected reason noise, got %s", frames[0].Invalid.Reason)
	}
	if stats.BytesProcessed != 4 {
		t.Errorf("expected bytes_processed=4, got %d", stats.BytesProcessed)
	}
}

func TestTimeMarkerSplitAcrossChunks(t *testing.T) {
	s := New(DefaultConfig())

	// First chunk ends on a byte that could begin a time marker; it
	// must be retained, not classified as noise.
	s.Feed([]byte{0xAA})
	if f, ok := s.Next(); ok {
		t.Fatalf("expected no frame yet, got %s", f)
	}
	if got := s.Stats().BytesProcessed; got != 0 {
		t.Fatalf("retained marker byte must stay unprocessed, bytes_processed=%d", got)
	}

	s.Feed([]byte{0xAA, 0x00, 0x00, 0x00, 0x00, 0x03, 0xE8})
	f, ok := s.Next()
	if !ok {
		t.Fatal("expected a time frame after the second chunk")
	}
	if f.Kind != frame.KindTime {
		t.Fatalf("expected time frame, got %s", f.Kind)
	}
}

func TestMaxPayloadBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPayload = 16

	// Declared length 1024 exceeds the bound; the scanner must fail
	// fast instead of buffering a kilobyte that never arrives.
	input := []byte{0x7E, 0x04, 0x00, 0x01, 0x02}

	s := New(cfg)
	s.Feed(input)

	f, ok := s.Next()
	if !ok {
		t.Fatal("expected an invalid segment without waiting for the full span")
	}
	if f.Kind != frame.KindInvalid || f.Invalid.Reason != frame.ReasonBadLength {
		t.Fatalf("expected bad_length segment, got %s", f)
	}
}

func TestCounterConsistency(t *testing.T) {
	valid, _ := frame.EncodeRegular([]byte("payload"))

	inputs := [][]byte{
		{},
		{0x7E},
		{0xAA},
		{0x00, 0x01, 0x02},
		valid,
		append([]byte{0x13, 0x37}, valid...),
		{0x7E, 0x00, 0x05, 0x48, 0x65},
		append(frame.EncodeTime(99), 0xAA, 0xAA, 0x01),
	}

	for i, input := range inputs {
		_, stats := collect(t, DefaultConfig(), input, 3)
		if stats.BytesProcessed != uint64(len(input)) {
			t.Errorf("input %d: bytes_processed=%d, fed %d", i, stats.BytesProcessed, len(input))
		}
	}
}

func TestTimeFrameInsidePayload(t *testing.T) {
	// A time marker inside a valid regular frame's payload must not
	// split the frame.
	payload := append([]byte("Hello"), 0xAA, 0xAA)
	payload = append(payload, []byte("World")...)
	input, _ := frame.EncodeRegular(payload)

	frames, _ := collect(t, DefaultConfig(), input, len(input))

	if len(frames) != 1 || frames[0].Kind != frame.KindRegular {
		t.Fatalf("expected a single regular frame, got %v", frames)
	}
	if !bytes.Equal(frames[0].Regular.Payload, payload) {
		t.Errorf("payload mismatch: got % X", frames[0].Regular.Payload)
	}
}

func TestFeedAfterFinishPanics(t *testing.T) {
	s := New(DefaultConfig())
	s.Finish()

	defer func() {
		if recover() == nil {
			t.Fatal("expected Feed after Finish to panic")
		}
	}()
	s.Feed([]byte{0x00})
}

func TestRunPumpsReader(t *testing.T) {
	var input []byte
	f1, _ := frame.EncodeRegular([]byte("via reader"))
	input = append(input, f1...)
	input = append(input, frame.EncodeTime(7)...)

	s := New(DefaultConfig())
	var frames []frame.Frame
	err := s.Run(bytes.NewReader(input), func(f frame.Frame) error {
		frames = append(frames, f)
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].Kind != frame.KindRegular || frames[1].Kind != frame.KindTime {
		t.Errorf("unexpected frame kinds: %s, %s", frames[0].Kind, frames[1].Kind)
	}
	if got := s.Stats().BytesProcessed; got != uint64(len(input)) {
		t.Errorf("bytes_processed=%d, fed %d", got, len(input))
	}
}
