package scanner

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/motleylight/LogParser/internal/frame"
)

// readChunkSize is the chunk size Run uses when pumping an io.Reader.
const readChunkSize = 4096

// Config controls scanner behavior.
type Config struct {
	// ValidateLength toggles checking the closing marker against the
	// declared length field. When disabled the declared length is
	// trusted unconditionally, which tolerates logs with corrupted
	// closing markers but correct length fields.
	ValidateLength bool

	// DecodeTimestamps controls whether time frames carry a decoded
	// 48-bit integer in addition to the raw timestamp bytes.
	DecodeTimestamps bool

	// MaxPayload is the largest declared length accepted under
	// validation; anything above it fails as BadLength immediately
	// instead of waiting for the full span to buffer. Zero or out of
	// range means the full 16-bit range is accepted.
	MaxPayload int
}

// DefaultConfig returns the default scanner configuration: length
// validation on, timestamp decoding off, full 16-bit payload range.
func DefaultConfig() Config {
	return Config{
		ValidateLength: true,
		MaxPayload:     frame.MaxPayloadSize,
	}
}

// scanState tracks which frame, if any, is currently being collected.
// Exactly one state is active at a time and it persists across Feed
// calls, so a chunk boundary never loses data.
type scanState int

const (
	stateScanning scanState = iota
	stateCollectingRegular
	stateCollectingTime
)

// Scanner extracts classified frames from an incrementally fed byte
// stream. Feed appends bytes, Next returns the next complete frame if
// one can be produced, and Finish flushes whatever is left once the
// byte source hits EOF.
type Scanner struct {
	cfg   Config
	state scanState
	stats Statistics

	// buf holds the contiguous unconsumed suffix of the stream.
	buf []byte

	// pending accumulates bytes already pulled out of buf that are
	// destined for a single invalid segment: noise skipped in front
	// of a marker, or the bytes walked over while resynchronizing
	// after a failed frame. pendingReason records why.
	pending       []byte
	pendingReason frame.Reason

	finished bool
}

// New creates a Scanner with the given configuration.
func New(cfg Config) *Scanner {
	if cfg.MaxPayload <= 0 || cfg.MaxPayload > frame.MaxPayloadSize {
		cfg.MaxPayload = frame.MaxPayloadSize
	}
	return &Scanner{cfg: cfg}
}

// Feed appends a chunk of stream bytes to the internal buffer. It
// never produces frames itself; call Next to advance the scan. Feeding
// after Finish is a caller bug.
func (s *Scanner) Feed(chunk []byte) {
	if s.finished {
		panic("scanner: Feed called after Finish")
	}
	s.buf = append(s.buf, chunk...)
}

// Finish marks the end of the byte stream. Subsequent Next calls drain
// the residue: a partially collected frame is finalized as a truncated
// invalid segment and trailing unclassifiable bytes as noise. Finish
// is idempotent.
func (s *Scanner) Finish() {
	s.finished = true
}

// Stats returns a snapshot of the running counters.
func (s *Scanner) Stats() Statistics {
	return s.stats
}

// Buffered returns the number of bytes fed but not yet consumed.
func (s *Scanner) Buffered() int {
	return len(s.buf)
}

// Next advances the state machine and returns the next fully
// classified frame. ok is false when the scanner needs more data (or,
// after Finish, when the stream is fully drained).
func (s *Scanner) Next() (frame.Frame, bool) {
	for {
		f, emitted, progressed := s.step()
		if emitted {
			return f, true
		}
		if !progressed {
			return frame.Frame{}, false
		}
	}
}

// Run pumps r through the scanner in fixed-size chunks, invoking emit
// for every classified frame, and finishes the stream at EOF. It
// returns the first error from r or emit.
func (s *Scanner) Run(r io.Reader, emit func(frame.Frame) error) error {
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.Feed(buf[:n])
			if err := s.drain(emit); err != nil {
				return err
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}

	s.Finish()
	return s.drain(emit)
}

// drain calls emit for every frame Next can currently produce.
func (s *Scanner) drain(emit func(frame.Frame) error) error {
	for {
		f, ok := s.Next()
		if !ok {
			return nil
		}
		if err := emit(f); err != nil {
			return err
		}
	}
}

// step performs one state transition. It returns the emitted frame (if
// any) and whether the machine made progress; no progress means Next
// should stop and wait for more data.
func (s *Scanner) step() (frame.Frame, bool, bool) {
	switch s.state {
	case stateCollectingRegular:
		return s.stepRegular()
	case stateCollectingTime:
		return s.stepTime()
	default:
		return s.stepScanning()
	}
}

// stepScanning looks for the earliest marker in the buffer. Bytes in
// front of it become (part of) an invalid segment.
func (s *Scanner) stepScanning() (frame.Frame, bool, bool) {
	markerIdx, markerLen := findMarker(s.buf)

	if markerIdx < 0 {
		// No marker anywhere. Everything is unclassifiable except a
		// trailing byte that could still begin a time marker once the
		// next chunk arrives.
		keep := 0
		if !s.finished && len(s.buf) > 0 && s.buf[len(s.buf)-1] == frame.TimeMarkerByte {
			keep = 1
		}
		if skip := len(s.buf) - keep; skip > 0 {
			s.skipToPending(skip)
		}
		if len(s.pending) > 0 {
			return s.emitPending(), true, true
		}
		return frame.Frame{}, false, false
	}

	if markerIdx > 0 {
		s.skipToPending(markerIdx)
	}
	if len(s.pending) > 0 {
		// Surface the skipped span before starting on the marker.
		return s.emitPending(), true, true
	}

	if markerLen == 1 {
		s.state = stateCollectingRegular
	} else {
		s.state = stateCollectingTime
	}
	return frame.Frame{}, false, true
}

// stepRegular collects a regular frame: length field, payload, closing
// marker. The buffer starts at the frame's start marker.
func (s *Scanner) stepRegular() (frame.Frame, bool, bool) {
	if len(s.buf) < 1+frame.LengthFieldSize {
		return s.stallOrTruncate()
	}

	declared := int(binary.BigEndian.Uint16(s.buf[1 : 1+frame.LengthFieldSize]))
	if s.cfg.ValidateLength && declared > s.cfg.MaxPayload {
		s.failFrame(frame.ReasonBadLength)
		return frame.Frame{}, false, true
	}

	span := 1 + frame.LengthFieldSize + declared + 1
	if len(s.buf) < span {
		return s.stallOrTruncate()
	}

	if s.cfg.ValidateLength && s.buf[span-1] != frame.StartMarker {
		// The closing byte is wrong. A marker inside the payload span
		// means the declared length disagreed with the real frame
		// end; otherwise the closing marker is simply missing.
		reason := frame.ReasonMissingCloseMarker
		if bytes.IndexByte(s.buf[1+frame.LengthFieldSize:span-1], frame.StartMarker) >= 0 {
			reason = frame.ReasonBadLength
		}
		s.failFrame(reason)
		return frame.Frame{}, false, true
	}

	raw := make([]byte, span)
	copy(raw, s.buf[:span])
	s.consume(span)
	s.state = stateScanning
	s.stats.FramesFound++

	return frame.Frame{
		Kind: frame.KindRegular,
		Raw:  raw,
		Regular: &frame.Regular{
			Payload:        raw[1+frame.LengthFieldSize : span-1],
			DeclaredLength: declared,
		},
	}, true, true
}

// stepTime collects the fixed-size time frame. The buffer starts at
// the two time marker bytes.
func (s *Scanner) stepTime() (frame.Frame, bool, bool) {
	if len(s.buf) < frame.TimeFrameSize {
		return s.stallOrTruncate()
	}

	raw := make([]byte, frame.TimeFrameSize)
	copy(raw, s.buf[:frame.TimeFrameSize])
	s.consume(frame.TimeFrameSize)
	s.state = stateScanning
	s.stats.TimeFramesFound++

	t := &frame.Time{}
	copy(t.Raw[:], raw[frame.TimeMarkerSize:])
	if s.cfg.DecodeTimestamps {
		// Length cannot mismatch here; the span is fixed at 6 bytes.
		ts, _ := frame.DecodeTimestamp(raw[frame.TimeMarkerSize:])
		t.Timestamp = ts
		t.Decoded = true
	}

	return frame.Frame{Kind: frame.KindTime, Raw: raw, Time: t}, true, true
}

// stallOrTruncate handles an incomplete frame: wait for more data
// mid-stream, or finalize the residue as truncated after Finish.
func (s *Scanner) stallOrTruncate() (frame.Frame, bool, bool) {
	if !s.finished {
		return frame.Frame{}, false, false
	}

	raw := make([]byte, len(s.buf))
	copy(raw, s.buf)
	s.consume(len(s.buf))
	s.state = stateScanning
	s.stats.InvalidFrames++

	return frame.Frame{
		Kind:    frame.KindInvalid,
		Raw:     raw,
		Invalid: &frame.Invalid{Reason: frame.ReasonTruncated},
	}, true, true
}

// failFrame abandons the frame being collected and resynchronizes one
// byte past its start marker, so a marker embedded in the corrupted
// span is not skipped. The marker byte joins the pending invalid
// segment; the rest of the span is rescanned.
func (s *Scanner) failFrame(reason frame.Reason) {
	s.pendingReason = reason
	s.skipToPending(1)
	s.state = stateScanning
}

// skipToPending consumes n buffered bytes into the pending invalid
// segment.
func (s *Scanner) skipToPending(n int) {
	s.pending = append(s.pending, s.buf[:n]...)
	s.consume(n)
}

// emitPending flushes the accumulated invalid span as one segment.
func (s *Scanner) emitPending() frame.Frame {
	raw := s.pending
	reason := s.pendingReason
	s.pending = nil
	s.pendingReason = frame.ReasonNoise
	s.stats.InvalidFrames++

	return frame.Frame{
		Kind:    frame.KindInvalid,
		Raw:     raw,
		Invalid: &frame.Invalid{Reason: reason},
	}
}

// consume drops n bytes from the front of the buffer and counts them
// as processed.
func (s *Scanner) consume(n int) {
	s.buf = s.buf[n:]
	s.stats.BytesProcessed += uint64(n)
}

// findMarker returns the position and width of the earliest frame
// marker in buf: the regular start marker (width 1) or the two-byte
// time marker. Position is -1 when neither occurs.
func findMarker(buf []byte) (int, int) {
	regIdx := bytes.IndexByte(buf, frame.StartMarker)
	timeIdx := bytes.Index(buf, frame.TimeMarker)

	switch {
	case regIdx < 0 && timeIdx < 0:
		return -1, 0
	case timeIdx < 0 || (regIdx >= 0 && regIdx < timeIdx):
		return regIdx, 1
	default:
		return timeIdx, frame.TimeMarkerSize
	}
}
