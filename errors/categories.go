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

// Kind identifies the broad category a curated error belongs to, without
// tying a caller to the exact wording of the message. Code that needs to
// branch on error category should switch on Kind rather than on the string
// returned by Head.
type Kind int

const (
	// KindUnknown covers plain errors that didn't originate in this package.
	KindUnknown Kind = iota

	// KindLinkFailed: the controller and the harness could not establish,
	// or lost, their message connection.
	KindLinkFailed

	// KindProtocolFraming: a message read off the wire didn't conform to
	// the expected framing (bad length, unknown code, short read).
	KindProtocolFraming

	// KindSnapshotUnreadable: a checkpoint file is missing, truncated, or
	// carries a header that this build does not understand.
	KindSnapshotUnreadable

	// KindThreadRaceLost: a thread could not be brought to quiescence (or
	// resumed) within the time the registry was prepared to wait for it.
	KindThreadRaceLost

	// KindInvalidStateTransition: a thread descriptor, or the boundary
	// itself, was asked to move to a state its current state can't reach.
	KindInvalidStateTransition

	// KindSignalDeliveryFailed: the registry could not arrange for a thread
	// to reach a quiesce point (send failed, or channel was never drained).
	KindSignalDeliveryFailed

	// KindIOError: a plain read/write failure against a file or socket that
	// doesn't fall into one of the categories above.
	KindIOError
)

// kindOf maps a curated error's head message to the Kind it belongs to. Not
// every message needs an entry; messages with no entry report KindUnknown.
var kindOf = map[string]Kind{
	LinkRefused:             KindLinkFailed,
	LinkClosed:              KindLinkFailed,
	LinkWriteFailed:         KindLinkFailed,
	FramingShortRead:        KindProtocolFraming,
	FramingShortReadHeader:  KindProtocolFraming,
	FramingShortReadPayload: KindProtocolFraming,
	FramingUnknownCode:      KindProtocolFraming,
	FramingPayloadTooBig:    KindProtocolFraming,
	FramingEncodeFailed:     KindProtocolFraming,
	FramingDecodeFailed:     KindProtocolFraming,
	SnapshotNoFile:          KindSnapshotUnreadable,
	SnapshotTruncated:       KindSnapshotUnreadable,
	SnapshotBadMagic:        KindSnapshotUnreadable,
	SnapshotVersionSkew:     KindSnapshotUnreadable,
	ThreadRaceLost:          KindThreadRaceLost,
	ThreadSuspendTimeout:    KindThreadRaceLost,
	StateTransitionDenied:   KindInvalidStateTransition,
	WrongCheckpointThread:   KindInvalidStateTransition,
	SignalNotDelivered:      KindSignalDeliveryFailed,
	RegionMapFailed:         KindIOError,
	RegionCopyFailed:        KindIOError,
}

// CategoryOf reports the Kind of err, looking through curated errors to
// their head message. Plain errors, and curated errors whose head isn't in
// the table above, report KindUnknown.
func CategoryOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	head := Head(err)
	if k, ok := kindOf[head]; ok {
		return k
	}
	return KindUnknown
}
