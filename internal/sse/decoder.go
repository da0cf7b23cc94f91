// Package sse decodes Server-Sent-Events response bodies into discrete data events.
//
// Only single-line `data: ` fields are recognised. The literal payload [DONE] ends
// the sequence; payloads that are not valid JSON are reported as warnings and
// skipped without interrupting the stream.
package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/davidbz/venicedesk/internal/domain"
)

const (
	dataPrefix     = "data: "
	doneSentinel   = "[DONE]"
	readBufferSize = 64 * 1024
)

// EventType distinguishes payload events from the terminal sentinel.
type EventType int

const (
	// EventData carries a JSON payload.
	EventData EventType = iota
	// EventDone marks the terminal sentinel.
	EventDone
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventData:
		return "data"
	case EventDone:
		return "done"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is one decoded protocol event.
type Event struct {
	Type    EventType
	Payload json.RawMessage
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithWarningHandler installs a callback for skipped, malformed payloads.
func WithWarningHandler(fn func(*domain.DecodeWarning)) Option {
	return func(d *Decoder) {
		d.onWarning = fn
	}
}

// Decoder turns a byte stream into events. It is single-pass and not safe for
// concurrent use; each stream owns its own Decoder.
type Decoder struct {
	r         *bufio.Reader
	line      int
	done      bool
	onWarning func(*domain.DecodeWarning)
}

// NewDecoder wraps r. Bytes pass through a streaming UTF-8 decoder so multi-byte
// characters split across reads are reassembled before lines are cut.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	utf8Reader := transform.NewReader(r, unicode.UTF8BOM.NewDecoder())

	d := &Decoder{
		r: bufio.NewReaderSize(utf8Reader, readBufferSize),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Next returns the next event. It returns io.EOF once the sentinel has been
// emitted or the underlying reader is exhausted; reaching EOF without a
// sentinel is not an error.
func (d *Decoder) Next() (Event, error) {
	for {
		if d.done {
			return Event{}, io.EOF
		}

		line, err := d.r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			// A partial line before a read failure is incomplete; drop it.
			return Event{}, fmt.Errorf("failed to read event stream: %w", err)
		}

		if len(line) > 0 {
			d.line++
			if ev, ok := d.parseLine(line); ok {
				return ev, nil
			}
		}

		if err != nil {
			d.done = true
			return Event{}, io.EOF
		}
	}
}

// parseLine classifies one complete line. It reports false for lines that do not
// produce an event.
func (d *Decoder) parseLine(line []byte) (Event, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if len(bytes.TrimSpace(line)) == 0 {
		return Event{}, false
	}

	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return Event{}, false
	}

	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if string(payload) == doneSentinel {
		d.done = true
		return Event{Type: EventDone}, true
	}

	if !json.Valid(payload) {
		d.warn(&domain.DecodeWarning{
			Line:    d.line,
			Payload: string(payload),
			Err:     errors.New("payload is not valid JSON"),
		})
		return Event{}, false
	}

	return Event{Type: EventData, Payload: json.RawMessage(payload)}, true
}

func (d *Decoder) warn(w *domain.DecodeWarning) {
	if d.onWarning != nil {
		d.onWarning(w)
	}
}
