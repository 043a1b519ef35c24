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

import (
	"fmt"
	"testing"
	"time"

	"github.com/jsle-tas/tascore/test"
	"github.com/jsle-tas/tascore/wire"
)

// recordingSink captures every EventSink call as a formatted string so
// tests can assert on both content and order.
type recordingSink struct {
	calls []string
}

func (s *recordingSink) PushKey(down bool, code int32) {
	s.calls = append(s.calls, fmt.Sprintf("key %d down=%v", code, down))
}

func (s *recordingSink) PushControllerAdded(id int32) {
	s.calls = append(s.calls, fmt.Sprintf("controller %d added", id))
}

func (s *recordingSink) PushControllerAxis(id, axis int32, value int16) {
	s.calls = append(s.calls, fmt.Sprintf("controller %d axis %d = %d", id, axis, value))
}

func (s *recordingSink) PushMouseMotion(dx, dy int32) {
	s.calls = append(s.calls, fmt.Sprintf("mouse motion (%d, %d)", dx, dy))
}

func (s *recordingSink) PushMouseButton(button int32, down bool) {
	s.calls = append(s.calls, fmt.Sprintf("mouse button %d down=%v", button, down))
}

func (s *recordingSink) Snapshot() FramebufferHandle { return nil }

func (s *recordingSink) Expose(FramebufferHandle) {}

func TestDeferredKeysEmitsOnlyChangedBits(t *testing.T) {
	sink := &recordingSink{}

	var prev, next [32]byte
	prev[0] = 0b0000_0011 // keys 0 and 1 held
	next[0] = 0b0000_0110 // keys 1 and 2 held

	deferredKeys(sink, prev, next)

	// key 1 held in both frames, so only 0 (released) and 2 (pressed)
	// produce events.
	test.ExpectEquality(t, len(sink.calls), 2)
	test.ExpectEquality(t, sink.calls[0], "key 0 down=false")
	test.ExpectEquality(t, sink.calls[1], "key 2 down=true")
}

func TestDeferredInputsControllerAddedOnlyAtFrameZero(t *testing.T) {
	var in wire.Inputs
	in.Controller[1].Axes[0] = 100

	sink := &recordingSink{}
	deferredInputs(sink, 0, wire.Inputs{}, in)
	test.ExpectEquality(t, sink.calls[0], "controller 0 added")

	later := &recordingSink{}
	deferredInputs(later, 5, wire.Inputs{}, in)
	for _, call := range later.calls {
		test.ExpectInequality(t, call, "controller 0 added")
	}
}

func TestDeferredInputsDiffsAxesMouseAndButtons(t *testing.T) {
	prev := wire.Inputs{MouseX: 10, MouseY: 10, MouseMask: 0b01}
	next := wire.Inputs{MouseX: 14, MouseY: 7, MouseMask: 0b10}
	next.Controller[0].Axes[2] = -500

	sink := &recordingSink{}
	deferredInputs(sink, 3, prev, next)

	test.ExpectEquality(t, sink.calls[0], "controller 0 axis 2 = -500")
	test.ExpectEquality(t, sink.calls[1], "mouse motion (4, -3)")
	test.ExpectEquality(t, sink.calls[2], "mouse button 0 down=false")
	test.ExpectEquality(t, sink.calls[3], "mouse button 1 down=true")
}

func TestRateTrackerResamplesOnCadence(t *testing.T) {
	r := &rateTracker{}

	// the first cadence-1 ticks accumulate without recomputing the rate.
	for i := 0; i < fpsSampleCadence-1; i++ {
		test.ExpectEquality(t, r.tick(time.Second/60), float32(0))
	}

	// the cadence-th tick folds the window: 10 frames over 10/60 seconds.
	got := r.tick(time.Second / 60)
	test.ExpectApproximate(t, got, float32(60), 0.1)
	test.ExpectApproximate(t, r.current(), float32(60), 0.1)
}
