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

package wire_test

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsle-tas/tascore/test"
	"github.com/jsle-tas/tascore/wire"
)

// pipeConn satisfies io.ReadWriteCloser over a net.Pipe half.
type pipeConn struct {
	net.Conn
}

func newPipe() (*wire.Conn, *wire.Conn) {
	a, b := net.Pipe()
	return wire.NewConn(pipeConn{a}), wire.NewConn(pipeConn{b})
}

func TestBareMessageRoundTrip(t *testing.T) {
	client, server := newPipe()
	defer client.Close()
	defer server.Close()

	go func() {
		test.DemandSuccess(t, client.WriteMessage(wire.StartBoundary))
	}()

	code, payload, err := server.ReadMessage()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, code, wire.StartBoundary)
	test.ExpectEquality(t, len(payload), 0)
}

func TestStructRoundTrip(t *testing.T) {
	client, server := newPipe()
	defer client.Close()
	defer server.Close()

	want := wire.FrameCountTimePayload{Framecount: 42, Sec: 100, Nsec: 250}

	go func() {
		test.DemandSuccess(t, client.WriteStruct(wire.FrameCountTime, want))
	}()

	code, payload, err := server.ReadMessage()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, code, wire.FrameCountTime)

	var got wire.FrameCountTimePayload
	require.NoError(t, wire.DecodeStruct(payload, &got))
	test.ExpectEquality(t, got, want)
}

func TestStringRoundTrip(t *testing.T) {
	client, server := newPipe()
	defer client.Close()
	defer server.Close()

	go func() {
		test.DemandSuccess(t, client.WriteString(wire.Alert, "disk full"))
	}()

	code, payload, err := server.ReadMessage()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, code, wire.Alert)
	test.ExpectEquality(t, string(payload), "disk full")
}

func TestReadMessageCleanEOF(t *testing.T) {
	client, server := newPipe()
	test.DemandSuccess(t, client.Close())

	_, _, err := server.ReadMessage()
	require.ErrorIs(t, err, io.EOF)
}

func TestJSONRoundTrip(t *testing.T) {
	client, server := newPipe()
	defer client.Close()
	defer server.Close()

	type payload struct {
		Fastforward bool
		Throttle    map[string]int
	}
	want := payload{Fastforward: true, Throttle: map[string]int{"main:time": 500}}

	go func() {
		test.DemandSuccess(t, client.WriteJSON(wire.Config, want))
	}()

	code, raw, err := server.ReadMessage()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, code, wire.Config)

	var got payload
	require.NoError(t, wire.DecodeJSON(raw, &got))
	test.ExpectEquality(t, got, want)
}

func TestCodeString(t *testing.T) {
	test.ExpectEquality(t, wire.SaveState.String(), "SAVESTATE")
	test.ExpectEquality(t, wire.Code(200).String(), "UNKNOWN")
}
