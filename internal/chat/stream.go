package chat

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ServerError is an explicit error record from the chat backend. The
// content received before it remains valid; only this one request
// failed.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("chat stream error: %s", e.Message)
}

// Stream is a single-pass, forward-only reader over one chat response.
// Events come out in wire order; after a terminal event Recv returns
// io.EOF (after Done) or the server error (after Error) forever. Each
// request gets its own Stream and its own reassembly buffer; nothing is
// cached or replayable.
type Stream struct {
	body io.ReadCloser
	dec  decoder
	buf  []byte

	pending  []Event
	terminal bool
	err      error
}

func newStream(body io.ReadCloser, log zerolog.Logger) *Stream {
	return &Stream{
		body: body,
		dec:  decoder{log: log},
		buf:  make([]byte, 4096),
	}
}

// Recv returns the next event. A Done event is yielded before the
// terminal io.EOF; an Error event is yielded once, with the same
// condition returned as a *ServerError on the following call. End of
// stream without an explicit terminal record yields io.EOF directly:
// truncated responses degrade to completion.
func (s *Stream) Recv() (Event, error) {
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]

			if ev.Terminal() {
				// Anything already decoded after the terminal record
				// is trailing data and must not surface.
				s.pending = nil
				s.terminal = true
				if ev.Type == EventError {
					s.err = &ServerError{Message: ev.Message}
				}
			}
			return ev, nil
		}

		if s.terminal {
			if s.err != nil {
				return Event{}, s.err
			}
			return Event{}, io.EOF
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.pending = s.dec.feed(string(s.buf[:n]))
		}
		if err != nil {
			// The undelivered tail is an incomplete record; drop it.
			s.terminal = true
			if err != io.EOF {
				s.err = err
			}
		}
	}
}

// Close releases the underlying response body. Abandoning a stream
// mid-request stops all further reads promptly.
func (s *Stream) Close() error {
	s.terminal = true
	s.pending = nil
	return s.body.Close()
}
