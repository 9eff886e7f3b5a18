package render

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/motleylight/LogParser/internal/frame"
	"github.com/motleylight/LogParser/internal/scanner"
)

// Supported output format names.
const (
	FormatText = "text"
	FormatHex  = "hex"
	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// Record is the structured form of a frame used by the JSON and CBOR
// renderers.
type Record struct {
	Type      string  `json:"type" cbor:"type"`
	Hex       string  `json:"hex" cbor:"hex"`
	Length    int     `json:"length" cbor:"length"`
	Timestamp *uint64 `json:"timestamp,omitempty" cbor:"timestamp,omitempty"`
	Reason    string  `json:"reason,omitempty" cbor:"reason,omitempty"`
}

// NewRecord converts a frame into its structured form.
func NewRecord(f frame.Frame) Record {
	rec := Record{
		Type:   f.Kind.String(),
		Hex:    hex.EncodeToString(f.Raw),
		Length: len(f.Raw),
	}
	if f.Kind == frame.KindTime && f.Time.Decoded {
		ts := f.Time.Timestamp
		rec.Timestamp = &ts
	}
	if f.Kind == frame.KindInvalid {
		rec.Reason = f.Invalid.Reason.String()
	}
	return rec
}

// Options controls renderer behavior shared across formats.
type Options struct {
	// IncludeInvalid emits invalid segments alongside valid frames.
	// When false only regular and time frames are rendered; the
	// scanner still counts everything.
	IncludeInvalid bool
}

// Renderer consumes the ordered frame sequence.
type Renderer interface {
	Render(f frame.Frame) error
}

// New returns a renderer for the named format writing to w.
func New(format string, w io.Writer, opts Options) (Renderer, error) {
	switch format {
	case FormatText:
		return &textRenderer{w: w, opts: opts}, nil
	case FormatHex:
		return &hexRenderer{w: w, opts: opts}, nil
	case FormatRaw:
		return &rawRenderer{w: w, opts: opts}, nil
	case FormatJSON:
		return &jsonRenderer{enc: json.NewEncoder(w), opts: opts}, nil
	case FormatCBOR:
		return &cborRenderer{enc: cbor.NewEncoder(w), opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

type textRenderer struct {
	w    io.Writer
	opts Options
}

func (r *textRenderer) Render(f frame.Frame) error {
	var err error
	switch f.Kind {
	case frame.KindRegular:
		_, err = fmt.Fprintf(r.w, "FRAME: %s\n", hex.EncodeToString(f.Raw))
	case frame.KindTime:
		if f.Time.Decoded {
			_, err = fmt.Fprintf(r.w, "TIME_FRAME: %s (timestamp: %d)\n",
				hex.EncodeToString(f.Raw), f.Time.Timestamp)
		} else {
			_, err = fmt.Fprintf(r.w, "TIME_FRAME: %s\n", hex.EncodeToString(f.Raw))
		}
	case frame.KindInvalid:
		if !r.opts.IncludeInvalid {
			return nil
		}
		_, err = fmt.Fprintf(r.w, "INVALID(%s): %s\n",
			f.Invalid.Reason, hex.EncodeToString(f.Raw))
	}
	return err
}

type hexRenderer struct {
	w    io.Writer
	opts Options
}

func (r *hexRenderer) Render(f frame.Frame) error {
	if f.Kind == frame.KindInvalid && !r.opts.IncludeInvalid {
		return nil
	}
	_, err := fmt.Fprintln(r.w, hex.EncodeToString(f.Raw))
	return err
}

type rawRenderer struct {
	w    io.Writer
	opts Options
}

func (r *rawRenderer) Render(f frame.Frame) error {
	if f.Kind == frame.KindInvalid && !r.opts.IncludeInvalid {
		return nil
	}
	_, err := r.w.Write(f.Raw)
	return err
}

type jsonRenderer struct {
	enc  *json.Encoder
	opts Options
}

func (r *jsonRenderer) Render(f frame.Frame) error {
	if f.Kind == frame.KindInvalid && !r.opts.IncludeInvalid {
		return nil
	}
	return r.enc.Encode(NewRecord(f))
}

type cborRenderer struct {
	enc  *cbor.Encoder
	opts Options
}

func (r *cborRenderer) Render(f frame.Frame) error {
	if f.Kind == frame.KindInvalid && !r.opts.IncludeInvalid {
		return nil
	}
	return r.enc.Encode(NewRecord(f))
}

// WriteStats prints the final statistics snapshot in the text footer
// format the CLI uses with -v.
func WriteStats(w io.Writer, stats scanner.Statistics) {
	fmt.Fprintln(w, "\nStatistics:")
	fmt.Fprintf(w, "  frames_found: %d\n", stats.FramesFound)
	fmt.Fprintf(w, "  time_frames_found: %d\n", stats.TimeFramesFound)
	fmt.Fprintf(w, "  invalid_frames: %d\n", stats.InvalidFrames)
	fmt.Fprintf(w, "  bytes_processed: %d\n", stats.BytesProcessed)
}
