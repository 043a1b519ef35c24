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

package errors

// error messages, grouped by the subsystem that raises them. Each is used
// as the format string passed to Errorf, so %v verbs stand in for whatever
// context the raising site has to hand (an address, a thread id, a wrapped
// error).
const (
	// link: establishing or maintaining the controller<->harness connection
	LinkRefused = "link error: controller connection refused: %v"
	LinkClosed  = "link error: connection closed unexpectedly: %v"

	// wire: message framing read off an established link
	FramingShortRead        = "framing error: short read decoding message (wanted %v, got %v)"
	FramingShortReadHeader  = "framing error: short read on message header: %v"
	FramingShortReadPayload = "framing error: short read on message payload: %v"
	FramingUnknownCode      = "framing error: unrecognised message code (%#02x)"
	FramingPayloadTooBig    = "framing error: payload exceeds maximum size (%v bytes)"
	FramingEncodeFailed     = "framing error: failed to encode message payload: %v"
	FramingDecodeFailed     = "framing error: failed to decode message payload: %v"
	LinkWriteFailed         = "link error: write failed: %v"

	// checkpoint: loading and saving state snapshots
	SnapshotNoFile      = "snapshot error: cannot open snapshot file (%v)"
	SnapshotTruncated   = "snapshot error: file ended before expected (%v)"
	SnapshotBadMagic    = "snapshot error: not a snapshot file (%v)"
	SnapshotVersionSkew = "snapshot error: incompatible snapshot version (got %v, want %v)"
	RegionMapFailed     = "snapshot error: failed to map region %v: %v"
	RegionCopyFailed    = "snapshot error: failed to restore region %v: %v"

	// registry: quiescing and resuming goroutines for a checkpoint
	ThreadRaceLost        = "thread registry error: thread %v did not reach quiescence in time"
	ThreadSuspendTimeout  = "thread registry error: timed out waiting for %v threads to suspend"
	StateTransitionDenied = "thread registry error: thread %v cannot move from %v to %v"
	SignalNotDelivered    = "thread registry error: could not signal thread %v: %v"
	WrongCheckpointThread = "thread registry error: %v called from a goroutine other than the checkpoint thread"

	// frame boundary
	BoundaryProtocolError = "frame boundary error: %v"
	BoundaryClosedEarly   = "frame boundary error: link closed mid-boundary"

	// clock
	ClockRateExceeded = "clock error: call rate exceeded for %v"
)
