// ABOUTME: Incremental decoder for the SSE event protocol
// ABOUTME: Buffer-aware, so a JSON event split across reads parses correctly
package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Decoder reads protocol events from a byte stream. It buffers partial
// frames across reads instead of splitting on whole-string boundaries,
// so an event broken mid-JSON by the transport still decodes.
type Decoder struct {
	r   io.Reader
	buf []byte
	eof bool
}

// NewDecoder creates a Decoder over r
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next returns the next decoded event. io.EOF signals a clean end of
// input after a complete frame; io.ErrUnexpectedEOF signals the stream
// dropped mid-frame. Callers must treat an EOF without a preceding
// terminal event as an error, never as silent success.
func (d *Decoder) Next() (*Event, error) {
	for {
		// Frames are separated by a blank line
		if i := bytes.Index(d.buf, []byte("\n\n")); i >= 0 {
			frame := d.buf[:i]
			d.buf = d.buf[i+2:]

			ev, ok, err := parseFrame(frame)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue // comment or empty frame
			}
			return ev, nil
		}

		if d.eof {
			if len(bytes.TrimSpace(d.buf)) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, io.EOF
		}

		chunk := make([]byte, 4096)
		n, err := d.r.Read(chunk)
		if n > 0 {
			d.buf = append(d.buf, chunk[:n]...)
		}
		if err == io.EOF {
			d.eof = true
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}

// parseFrame extracts and decodes the data payload of one frame
func parseFrame(frame []byte) (*Event, bool, error) {
	var payload []byte

	for _, line := range bytes.Split(frame, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if data, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			payload = append(payload, bytes.TrimPrefix(data, []byte(" "))...)
		}
	}

	if len(payload) == 0 {
		return nil, false, nil
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, false, fmt.Errorf("malformed event payload: %w", err)
	}
	return &ev, true, nil
}
