package client

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode"
)

// Sink receives decoded samples. The shared client state implements it.
type Sink interface {
	AppendSample(values []int)
}

// ParseSample decodes one server line into at least channels integers.
// Values are separated by commas and/or whitespace. Values beyond the
// channel count are kept; the sink decides what to do with them.
// Blank lines and lines starting with '#' return (nil, nil).
func ParseSample(line string, channels int) ([]int, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})

	if len(fields) < channels {
		return nil, &ParseError{
			Line:   line,
			Field:  -1,
			Reason: fmt.Sprintf("expected %d values, got %d", channels, len(fields)),
		}
	}

	values := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, &ParseError{Line: line, Field: i, Reason: "not an integer"}
		}
		values[i] = v
	}
	return values, nil
}

// malformedLogEvery limits how often malformed lines are logged at warn level.
const malformedLogEvery = 100

// LineDecoder parses lines into samples and hands them to a Sink.
// Implements LineParser.
type LineDecoder struct {
	channels int
	sink     Sink
	logger   *slog.Logger

	samples   atomic.Int64
	malformed atomic.Int64
}

// NewLineDecoder creates a decoder for a fixed channel count.
func NewLineDecoder(channels int, sink Sink, logger *slog.Logger) *LineDecoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineDecoder{
		channels: channels,
		sink:     sink,
		logger:   logger,
	}
}

// ParseLine decodes a line and forwards it to the sink.
func (d *LineDecoder) ParseLine(line string) {
	values, err := ParseSample(line, d.channels)
	if err != nil {
		n := d.malformed.Add(1)
		if n == 1 || n%malformedLogEvery == 0 {
			d.logger.Warn("malformed_line", "error", err, "malformed_total", n)
		}
		return
	}
	if values == nil {
		return
	}
	d.sink.AppendSample(values)
	d.samples.Add(1)
}

// Samples returns the number of samples delivered to the sink.
func (d *LineDecoder) Samples() int64 {
	return d.samples.Load()
}

// Malformed returns the number of lines that failed to decode.
func (d *LineDecoder) Malformed() int64 {
	return d.malformed.Load()
}
