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

package frameboundary

import "github.com/jsle-tas/tascore/wire"

// FramebufferHandle is an opaque token an EventSink hands back from
// Snapshot and accepts back via Expose. This package never looks inside
// it; window/render management is an explicit non-goal.
type FramebufferHandle interface{}

// EventSink is the boundary's one external collaborator: the Go stand-in
// for the emulated event queue and framebuffer surface a real game engine
// would own. No concrete implementation ships in this module; tests supply
// a recording fake.
type EventSink interface {
	PushKey(down bool, code int32)
	PushControllerAdded(id int32)
	PushControllerAxis(id int32, axis int32, value int16)
	PushMouseMotion(dx, dy int32)
	PushMouseButton(button int32, down bool)
	Snapshot() FramebufferHandle
	Expose(FramebufferHandle)
}

// deferredInputs pushes the diff between prev and next into sink, in the
// fixed order Enter's contract promises: controller-added events (only at
// frame 0), then per-controller axis diffs, then mouse motion and
// button diffs. Keyboard up/down events are pushed separately by the
// caller as they're decoded bit-by-bit from Inputs.Keyboard, not diffed
// here.
func deferredInputs(sink EventSink, frame uint64, prev, next wire.Inputs) {
	if frame == 0 {
		for id := range next.Controller {
			sink.PushControllerAdded(int32(id))
		}
	}

	for id := range next.Controller {
		pushControllerDiff(sink, int32(id), prev.Controller[id], next.Controller[id])
	}

	if dx, dy := int32(next.MouseX-prev.MouseX), int32(next.MouseY-prev.MouseY); dx != 0 || dy != 0 {
		sink.PushMouseMotion(dx, dy)
	}
	pushMouseButtonDiff(sink, prev.MouseMask, next.MouseMask)
}

// pushControllerDiff emits one PushControllerAxis per axis that moved and
// nothing for axes that didn't. Button diffs aren't modelled as a
// dedicated EventSink call in this redesign: ControllerState carries no
// per-button semantic beyond a bitmask the movie-file layer interprets, so
// callers that need per-button edges do so via the raw Inputs payload
// rather than through EventSink.
func pushControllerDiff(sink EventSink, id int32, prev, next ControllerState) {
	for axis := range next.Axes {
		if next.Axes[axis] != prev.Axes[axis] {
			sink.PushControllerAxis(id, int32(axis), next.Axes[axis])
		}
	}
}

// ControllerState is an alias of wire.ControllerState, kept local so
// callers diffing controller state don't need to import wire directly for
// the type name.
type ControllerState = wire.ControllerState

// pushMouseButtonDiff emits a PushMouseButton call for every button whose
// held bit changed between prev and next.
func pushMouseButtonDiff(sink EventSink, prev, next uint8) {
	changed := prev ^ next
	for button := 0; button < 8; button++ {
		bit := uint8(1) << uint(button)
		if changed&bit == 0 {
			continue
		}
		sink.PushMouseButton(int32(button), next&bit != 0)
	}
}

// deferredKeys pushes one PushKey call per bit that changed between prev
// and next's keyboard bitset.
func deferredKeys(sink EventSink, prev, next [32]byte) {
	for byteIdx := range next {
		changed := prev[byteIdx] ^ next[byteIdx]
		if changed == 0 {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			mask := byte(1) << uint(bit)
			if changed&mask == 0 {
				continue
			}
			code := int32(byteIdx*8 + bit)
			sink.PushKey(next[byteIdx]&mask != 0, code)
		}
	}
}
