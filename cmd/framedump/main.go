// framedump extracts frames from binary log captures and prints them
// in one of several output formats.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/motleylight/LogParser/internal/frame"
	"github.com/motleylight/LogParser/internal/render"
	"github.com/motleylight/LogParser/internal/scanner"
	"github.com/motleylight/LogParser/internal/source"
)

func main() {
	var (
		filePath    = flag.String("f", "", "Path to a binary log file (default: read stdin)")
		hexInput    = flag.String("x", "", "Hex-encoded input string instead of a file")
		hexStdin    = flag.Bool("s", false, "Treat stdin as hex text instead of raw bytes")
		noValidate  = flag.Bool("no-validate", false, "Trust declared lengths, skip closing marker checks")
		parseTime   = flag.Bool("parse-time", false, "Decode time frame timestamps")
		outFormat   = flag.String("o", render.FormatText, "Output format: text, hex, raw, json, cbor")
		showInvalid = flag.Bool("show-invalid", false, "Include invalid segments in the output")
		verbose     = flag.Bool("v", false, "Print statistics to stderr when done")
		maxPayload  = flag.Int("max-payload", frame.MaxPayloadSize, "Largest declared payload length accepted")
	)
	flag.Parse()

	if err := run(*filePath, *hexInput, *hexStdin, *noValidate, *parseTime,
		*outFormat, *showInvalid, *verbose, *maxPayload); err != nil {
		fmt.Fprintf(os.Stderr, "framedump: %v\n", err)
		os.Exit(1)
	}
}

func run(filePath, hexInput string, hexStdin, noValidate, parseTime bool,
	outFormat string, showInvalid, verbose bool, maxPayload int) error {

	input, err := openInput(filePath, hexInput, hexStdin)
	if err != nil {
		return err
	}
	defer input.Close()

	out, err := render.New(outFormat, os.Stdout, render.Options{IncludeInvalid: showInvalid})
	if err != nil {
		return err
	}

	sc := scanner.New(scanner.Config{
		ValidateLength:   !noValidate,
		DecodeTimestamps: parseTime,
		MaxPayload:       maxPayload,
	})

	if err := sc.Run(input, out.Render); err != nil {
		return err
	}

	if verbose {
		render.WriteStats(os.Stderr, sc.Stats())
	}
	return nil
}

// openInput picks the byte source: a file, an inline hex string, hex
// text on stdin, or raw stdin.
func openInput(filePath, hexInput string, hexStdin bool) (io.ReadCloser, error) {
	switch {
	case filePath != "" && hexInput != "":
		return nil, fmt.Errorf("-f and -x are mutually exclusive")
	case hexInput != "":
		return source.FromHex(hexInput)
	case filePath != "":
		return source.FromFile(filePath)
	case hexStdin:
		return source.FromHexReader(os.Stdin)
	default:
		return source.Stdin(), nil
	}
}
