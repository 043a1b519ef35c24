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
	"sync"
	"time"
)

// fpsRingSize and fpsSampleCadence pin the fps/lfps tracker to the rolling
// window Enter's contract promises: 10 samples, resampled every 10 frames.
const (
	fpsRingSize      = 10
	fpsSampleCadence = 10
)

// rateTracker computes a rolling per-second rate from a stream of
// per-frame durations, resampling only every fpsSampleCadence frames so a
// single slow or fast frame doesn't jitter the reported rate. It backs
// both FrameBoundary's wall-clock fps and its virtual-clock lfps; the two
// differ only in what duration each Enter call feeds in.
type rateTracker struct {
	mu sync.Mutex

	samples        [fpsRingSize]time.Duration
	next           int
	filled         int
	accum          time.Duration
	framesInWindow int
	rate           float32
}

// tick accumulates delta into the current sampling window and, once
// fpsSampleCadence frames have elapsed, folds the window into the ring and
// recomputes rate. It always returns the tracker's current rate, updated
// or not.
func (r *rateTracker) tick(delta time.Duration) float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accum += delta
	r.framesInWindow++
	if r.framesInWindow < fpsSampleCadence {
		return r.rate
	}

	r.samples[r.next] = r.accum
	r.next = (r.next + 1) % fpsRingSize
	if r.filled < fpsRingSize {
		r.filled++
	}

	var total time.Duration
	for i := 0; i < r.filled; i++ {
		total += r.samples[i]
	}
	if total > 0 {
		r.rate = float32(float64(fpsSampleCadence*r.filled) / total.Seconds())
	}

	r.accum = 0
	r.framesInWindow = 0
	return r.rate
}

// current returns the tracker's last computed rate without advancing it.
func (r *rateTracker) current() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}
