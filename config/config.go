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

// Package config carries the Shared configuration record that the
// controller pushes to the harness over the wire protocol's Config
// message, and the on-disk form of the same record used to seed a fresh
// session.
package config

// Shared is replaced wholesale by every Config message the controller
// sends (see the post-load handshake in the frameboundary package); there
// is no partial-merge path.
type Shared struct {
	// Fastforward enables the frame boundary's SkipDraw fast path.
	Fastforward bool `toml:"fastforward"`

	// FrameAdvance marks that the controller is single-stepping the
	// target. Pacing itself is the controller's job (it simply withholds
	// EndBoundary until the user steps); the harness carries the flag so
	// it survives a save/load cycle with the rest of the config.
	FrameAdvance bool `toml:"frame_advance"`

	// Recording marks that a movie is currently being captured, purely for
	// telemetry; movie capture itself is an external collaborator.
	Recording bool `toml:"recording"`

	// ReloadInitialState is the controller's initial-state reload flag. The
	// harness only carries it; nothing in this module reads it or loads a
	// snapshot before the first frame.
	ReloadInitialState bool `toml:"reload_initial_state"`

	// HUD and OSD toggles, carried across sessions as "sticky" state the
	// controller expects to survive a save/load cycle.
	ShowHUD bool `toml:"show_hud"`
	ShowOSD bool `toml:"show_osd"`

	// CaptureScreen enables FrameBoundary's side-buffer framebuffer
	// snapshot, taken on every drawn frame so EXPOSE/PREVIEW_INPUTS can
	// re-blit it without asking the target to re-render.
	CaptureScreen bool `toml:"capture_screen"`

	// FramerateNum and FramerateDen express the target frame rate as an
	// exact rational (frames per second), so whole-second boundaries land
	// exactly: 60 frames at 60/1 is precisely one second of virtual time,
	// with no truncated-nanosecond drift. NTSC-style rates (30000/1001)
	// are representable directly.
	FramerateNum uint32 `toml:"framerate_num"`
	FramerateDen uint32 `toml:"framerate_den"`

	// Throttle holds the per-query-kind, per-thread-kind call thresholds
	// consumed by the clock package's rate limiter.
	Throttle ThrottleTable `toml:"throttle"`
}

// ThrottleTable maps a throttle category name (see clock.categoryKey.String)
// to the number of calls allowed per frame period before the clock package
// advances virtual time to unstick a busy-spinning caller. A zero or
// missing entry means unthrottled.
type ThrottleTable map[string]int

// Default returns the configuration a fresh session starts with absent any
// file or controller override.
func Default() Shared {
	return Shared{
		FramerateNum: 60,
		FramerateDen: 1,
		Throttle: ThrottleTable{
			"main:time":               0,
			"main:clock_gettime":      0,
			"secondary:time":          1000,
			"secondary:clock_gettime": 1000,
		},
	}
}
