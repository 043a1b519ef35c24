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

package test

import "fmt"

// CappedWriter is an io.Writer that accumulates bytes up to a fixed limit
// and silently discards anything written beyond it.
type CappedWriter struct {
	limit int
	buf   []byte
}

// NewCappedWriter creates a CappedWriter that discards anything written
// beyond limit bytes.
func NewCappedWriter(limit int) (*CappedWriter, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("test: capped writer limit must be greater than zero")
	}
	return &CappedWriter{limit: limit}, nil
}

// Write implements io.Writer. Once the cap has been reached, further writes
// report success (so as not to upset well behaved callers) without adding
// to the buffer.
func (c *CappedWriter) Write(p []byte) (int, error) {
	room := c.limit - len(c.buf)
	if room <= 0 {
		return len(p), nil
	}
	if room > len(p) {
		room = len(p)
	}
	c.buf = append(c.buf, p[:room]...)
	return len(p), nil
}

// String returns everything retained so far.
func (c *CappedWriter) String() string {
	return string(c.buf)
}

// Reset discards everything written so far.
func (c *CappedWriter) Reset() {
	c.buf = c.buf[:0]
}

// RingWriter is an io.Writer that retains only the most recently written
// limit bytes, discarding the oldest bytes as new ones arrive.
type RingWriter struct {
	limit int
	buf   []byte
}

// NewRingWriter creates a RingWriter that retains the most recent limit
// bytes written to it.
func NewRingWriter(limit int) (*RingWriter, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("test: ring writer limit must be greater than zero")
	}
	return &RingWriter{limit: limit}, nil
}

// Write implements io.Writer.
func (r *RingWriter) Write(p []byte) (int, error) {
	if len(p) >= r.limit {
		r.buf = append(r.buf[:0], p[len(p)-r.limit:]...)
		return len(p), nil
	}

	overflow := len(r.buf) + len(p) - r.limit
	if overflow > 0 {
		r.buf = r.buf[overflow:]
	}
	r.buf = append(r.buf, p...)
	return len(p), nil
}

// String returns the most recently written bytes, oldest first.
func (r *RingWriter) String() string {
	return string(r.buf)
}

// Reset discards everything written so far.
func (r *RingWriter) Reset() {
	r.buf = r.buf[:0]
}
