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

// Package clock implements the deterministic virtual clock that the
// target process perceives as wall-clock time. Its rate is controlled
// entirely by the harness: FrameBoundary advances it by exactly one frame
// period per boundary, and a rate-limited throttle nudges it forward when
// a thread is found busy-spinning on a time query inside a single frame.
package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"

	"github.com/jsle-tas/tascore/config"
)

// TimeHolder is the game-visible time, split into seconds plus
// nanoseconds rather than held as a single time.Duration, so callers
// translating to a platform's timespec layout don't need to re-derive
// the split.
type TimeHolder struct {
	Sec  int64
	Nsec int64
}

// Add returns h advanced by d.
func (h TimeHolder) Add(d time.Duration) TimeHolder {
	total := h.Sec*int64(time.Second) + h.Nsec + int64(d)
	return TimeHolder{
		Sec:  total / int64(time.Second),
		Nsec: total % int64(time.Second),
	}
}

// Duration returns h as a time.Duration since the zero TimeHolder.
func (h TimeHolder) Duration() time.Duration {
	return time.Duration(h.Sec)*time.Second + time.Duration(h.Nsec)
}

// Before reports whether h happened strictly before o.
func (h TimeHolder) Before(o TimeHolder) bool {
	return h.Duration() < o.Duration()
}

// QueryKind enumerates the time-query APIs the throttle recognizes.
type QueryKind int

const (
	Time QueryKind = iota
	GetTimeOfDay
	Clock
	ClockGettime
	SDLGetTicks
	SDLGetPerformanceCounter
)

func (k QueryKind) String() string {
	switch k {
	case Time:
		return "time"
	case GetTimeOfDay:
		return "gettimeofday"
	case Clock:
		return "clock"
	case ClockGettime:
		return "clock_gettime"
	case SDLGetTicks:
		return "sdl_getticks"
	case SDLGetPerformanceCounter:
		return "sdl_getperformancecounter"
	default:
		return "unknown"
	}
}

// ThreadKind distinguishes the harness's notion of the main/checkpoint
// thread from every other goroutine, since each carries its own threshold
// table.
type ThreadKind int

const (
	MainThread ThreadKind = iota
	SecondaryThread
)

func (k ThreadKind) String() string {
	if k == MainThread {
		return "main"
	}
	return "secondary"
}

type categoryKey struct {
	kind   QueryKind
	thread ThreadKind
}

func (k categoryKey) String() string {
	return fmt.Sprintf("%s:%s", k.thread, k.kind)
}

// Timer is the deterministic clock. The zero value is not usable;
// construct one with NewTimer.
//
// The frame rate is held as an exact rational (frames per second,
// num/den) and the current time is computed cumulatively from a base time
// plus a frame count, never by repeatedly adding a rounded per-frame
// duration. 60 frames at 60fps is exactly one second; the rounding error
// of a truncated nanosecond period never accumulates.
type Timer struct {
	mu     sync.Mutex
	base   TimeHolder // time at the last SetTicks/Reconfigure/boundary drain
	frames uint64     // AdvanceFrame calls since base
	delay  time.Duration

	num, den    uint32 // frames per second as num/den
	framePeriod time.Duration
	inBoundary  bool

	// limiters holds one catrate.Limiter per throttled category: catrate
	// applies a single shared set of rate windows across every category
	// passed to Allow, but each query kind/thread kind pairing here needs
	// its own independent threshold, so each gets its own single-window
	// Limiter rather than sharing one.
	limiters map[categoryKey]*catrate.Limiter
}

func buildLimiters(framePeriod time.Duration, thresholds map[string]int) map[categoryKey]*catrate.Limiter {
	limiters := make(map[categoryKey]*catrate.Limiter)
	for _, thread := range []ThreadKind{MainThread, SecondaryThread} {
		for _, kind := range []QueryKind{Time, GetTimeOfDay, Clock, ClockGettime, SDLGetTicks, SDLGetPerformanceCounter} {
			key := categoryKey{kind: kind, thread: thread}
			n, ok := thresholds[key.String()]
			if !ok || n <= 0 {
				continue
			}
			limiters[key] = catrate.NewLimiter(map[time.Duration]int{framePeriod: n})
		}
	}
	return limiters
}

// framePeriodOf truncates the rational rate to a nanosecond duration, for
// callers that need an approximate per-frame length (the throttle cap and
// window, the lfps tracker). Tick computation never uses it.
func framePeriodOf(num, den uint32) time.Duration {
	if num == 0 {
		num = 60
	}
	if den == 0 {
		den = 1
	}
	return time.Duration(uint64(time.Second) * uint64(den) / uint64(num))
}

// NewTimer creates a Timer running at num/den frames per second with the
// given per-category call-rate thresholds (see ThrottleTable in the
// config package; a zero or absent threshold leaves that category
// unthrottled). A zero num or den falls back to 60/1.
func NewTimer(num, den uint32, thresholds map[string]int) *Timer {
	if num == 0 {
		num = 60
	}
	if den == 0 {
		den = 1
	}
	period := framePeriodOf(num, den)

	return &Timer{
		num:         num,
		den:         den,
		framePeriod: period,
		limiters:    buildLimiters(period, thresholds),
	}
}

// NewTimerFromConfig builds a Timer from a shared config record, the form
// the wire protocol's Config message and on-disk configuration both use.
func NewTimerFromConfig(cfg config.Shared) *Timer {
	return NewTimer(cfg.FramerateNum, cfg.FramerateDen, cfg.Throttle)
}

// Reconfigure replaces t's frame rate and per-category throttle
// thresholds in place, the way a runtime CONFIG message from the
// controller does. The current time is folded into the base first, so a
// rate change never rewinds the clock. Existing limiter state for
// categories present in both the old and new threshold tables is
// discarded rather than carried forward: a changed threshold means a
// changed window, and carrying stale counts across that change would
// under- or over-throttle until the next reset anyway.
func (t *Timer) Reconfigure(num, den uint32, thresholds map[string]int) {
	if num == 0 {
		num = 60
	}
	if den == 0 {
		den = 1
	}
	period := framePeriodOf(num, den)
	limiters := buildLimiters(period, thresholds)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.base = t.ticksLocked()
	t.frames = 0
	t.delay = 0
	t.num = num
	t.den = den
	t.framePeriod = period
	t.limiters = limiters
}

// ticksLocked must be called with mu held. Elapsed time is the cumulative
// product frames*den/num seconds, split so the intermediate products
// can't overflow for any plausible rate.
func (t *Timer) ticksLocked() TimeHolder {
	whole := t.frames / uint64(t.num)
	rem := t.frames % uint64(t.num)
	nsec := whole*uint64(time.Second)*uint64(t.den) +
		rem*uint64(time.Second)*uint64(t.den)/uint64(t.num)
	return t.base.Add(time.Duration(nsec) + t.delay)
}

// GetTicks returns the current virtual time, including any throttle delay
// accumulated this frame. Two successive calls on any goroutine never
// observe a decrease.
func (t *Timer) GetTicks() TimeHolder {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticksLocked()
}

// AdvanceFrame adds exactly one frame to the virtual clock, regardless of
// how much wall-clock time actually elapsed.
func (t *Timer) AdvanceFrame() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames++
}

// FramePeriod returns the approximate duration of one frame, truncated to
// nanoseconds.
func (t *Timer) FramePeriod() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.framePeriod
}

// SetTicks forces the virtual clock to exactly h, discarding any pending
// throttle delay. It exists solely for CheckpointEngine.Load's restore
// path: a loaded snapshot carries its own saved virtual time, which must
// replace whatever this process had accumulated since, not be added to it.
func (t *Timer) SetTicks(h TimeHolder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base = h
	t.frames = 0
	t.delay = 0
}

// EnterBoundary drains the pending throttle-delay accumulator into the
// base time and suppresses further throttling until ExitBoundary.
func (t *Timer) EnterBoundary() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.delay > 0 {
		t.base = t.base.Add(t.delay)
		t.delay = 0
	}
	t.inBoundary = true
}

// ExitBoundary re-enables per-query throttling.
func (t *Timer) ExitBoundary() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inBoundary = false
}

// AccountCall registers a single call to the named time-query API from a
// goroutine of the given kind. Each call the category's rate limiter
// denies adds delay to the virtual clock, the pending delay being capped
// at one frame period in total until the next boundary drains it; the
// limiter itself is not reset here — keeping a tight busy-loop on a time query from starving
// out the rest of the process while still making the caller's own
// perceived clock advance.
func (t *Timer) AccountCall(kind QueryKind, thread ThreadKind) {
	key := categoryKey{kind: kind, thread: thread}

	t.mu.Lock()
	limiter, throttled := t.limiters[key]
	inBoundary := t.inBoundary
	t.mu.Unlock()
	if !throttled || inBoundary {
		return
	}

	_, allowed := limiter.Allow(key)
	if allowed {
		return
	}

	t.mu.Lock()
	residual := t.framePeriod - t.delay
	if residual > 0 {
		add := t.framePeriod
		if residual < add {
			add = residual
		}
		t.delay += add
	}
	t.mu.Unlock()
}
