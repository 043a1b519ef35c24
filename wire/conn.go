// This file is part of tascore.
//
// tascore is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// tascore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with tascore.  If not, see <https://www.gnu.org/licenses/>.

package wire

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/jsle-tas/tascore/errors"
)

// maxPayload bounds a single message's payload, guarding against a
// corrupted or hostile length prefix causing an unbounded allocation.
const maxPayload = 64 << 20

// Conn wraps a byte stream with the harness<->controller framing: one byte
// of Code, then a uint32 length prefix, then that many payload bytes, all
// little-endian.
type Conn struct {
	rw io.ReadWriteCloser
	r  *bufio.Reader
}

// NewConn wraps rw for framed message exchange.
func NewConn(rw io.ReadWriteCloser) *Conn {
	return &Conn{rw: rw, r: bufio.NewReader(rw)}
}

// Close closes the underlying stream.
func (c *Conn) Close() error {
	return c.rw.Close()
}

// WriteMessage writes a bare message code with no payload, eg START_BOUNDARY.
func (c *Conn) WriteMessage(code Code) error {
	return c.WritePayload(code, nil)
}

// WritePayload writes code followed by payload, length-prefixed.
func (c *Conn) WritePayload(code Code, payload []byte) error {
	var hdr [5]byte
	hdr[0] = byte(code)
	binary.LittleEndian.PutUint32(hdr[1:], uint32(len(payload)))

	if _, err := c.rw.Write(hdr[:]); err != nil {
		return errors.Errorf(errors.LinkWriteFailed, err)
	}
	if len(payload) > 0 {
		if _, err := c.rw.Write(payload); err != nil {
			return errors.Errorf(errors.LinkWriteFailed, err)
		}
	}
	return nil
}

// WriteStruct encodes v with encoding/binary (fixed-size fields only) and
// writes it as code's payload.
func (c *Conn) WriteStruct(code Code, v any) error {
	buf := make([]byte, binary.Size(v))
	w := sliceWriter{buf: buf}
	if err := binary.Write(&w, binary.LittleEndian, v); err != nil {
		return errors.Errorf(errors.FramingEncodeFailed, err)
	}
	return c.WritePayload(code, buf)
}

// WriteString writes code followed by a length-prefixed UTF-8 string
// payload, eg ALERT's accompanying message.
func (c *Conn) WriteString(code Code, s string) error {
	return c.WritePayload(code, []byte(s))
}

// WriteJSON encodes v with encoding/json and writes it as code's payload.
// It exists for the one message shape (CONFIG) that carries a variable-size
// field (ThrottleTable is a map) and so can't go through
// WriteStruct/DecodeStruct's fixed-layout encoding/binary path.
func (c *Conn) WriteJSON(code Code, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Errorf(errors.FramingEncodeFailed, err)
	}
	return c.WritePayload(code, payload)
}

// DecodeJSON decodes payload, as produced by WriteJSON, into v.
func DecodeJSON(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.Errorf(errors.FramingDecodeFailed, err)
	}
	return nil
}

// ReadMessage reads the next message's code and raw payload. A clean EOF
// (controller closed the stream between frames) is returned unwrapped so
// callers can distinguish it from a mid-message truncation, which is
// reported as io.ErrUnexpectedEOF wrapped via errors.Errorf.
func (c *Conn) ReadMessage() (Code, []byte, error) {
	var hdr [5]byte
	if _, err := io.ReadFull(c.r, hdr[:]); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, errors.Errorf(errors.FramingShortReadHeader, err)
	}

	code := Code(hdr[0])
	n := binary.LittleEndian.Uint32(hdr[1:])
	if n > maxPayload {
		return 0, nil, errors.Errorf(errors.FramingPayloadTooBig, n)
	}

	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(c.r, payload); err != nil {
			return 0, nil, errors.Errorf(errors.FramingShortReadPayload, err)
		}
	}
	return code, payload, nil
}

// DecodeStruct decodes payload into v (a pointer to a fixed-size struct).
func DecodeStruct(payload []byte, v any) error {
	r := sliceReader{buf: payload}
	if err := binary.Read(&r, binary.LittleEndian, v); err != nil {
		return errors.Errorf(errors.FramingDecodeFailed, err)
	}
	return nil
}

// sliceWriter/sliceReader let encoding/binary target a pre-sized []byte
// without an extra bytes.Buffer allocation on the hot per-frame path.

type sliceWriter struct {
	buf []byte
	off int
}

func (w *sliceWriter) Write(p []byte) (int, error) {
	n := copy(w.buf[w.off:], p)
	w.off += n
	return n, nil
}

type sliceReader struct {
	buf []byte
	off int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.off >= len(r.buf) {
		return 0, io.EOF
	}
	n := copy(p, r.buf[r.off:])
	r.off += n
	return n, nil
}
