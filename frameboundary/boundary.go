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

// Package frameboundary implements the per-frame rendezvous between the
// target process and its controller: it flushes deterministic state,
// exchanges wire messages, and dispatches savestate/load/input commands to
// the clock, registry and checkpoint packages on the controller's behalf.
package frameboundary

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/jsle-tas/tascore/checkpoint"
	"github.com/jsle-tas/tascore/clock"
	"github.com/jsle-tas/tascore/config"
	"github.com/jsle-tas/tascore/errors"
	"github.com/jsle-tas/tascore/logger"
	"github.com/jsle-tas/tascore/registry"
	"github.com/jsle-tas/tascore/wire"
)

// ErrUserQuit is returned by Enter when the controller asked the target to
// quit, or when the controller stream ended (cleanly or truncated). It is
// a plain sentinel, not a curated errors.Errorf value, because callers are
// expected to compare it with errors.Is and treat it as an ordinary,
// successful shutdown request rather than log and propagate it.
var ErrUserQuit = stderrors.New("frameboundary: controller requested quit")

// Boundary is the per-frame rendezvous point. The zero value is not
// usable; construct one with New.
type Boundary struct {
	conn     *wire.Conn
	registry *registry.Registry
	timer    *clock.Timer
	engine   *checkpoint.Engine
	sink     EventSink

	onceMain sync.Once

	mu         sync.Mutex
	cfg        config.Shared
	framecount uint64
	exiting    bool

	lastInputs    wire.Inputs
	pendingInputs wire.Inputs

	lastFramebuffer FramebufferHandle

	gameInfo      wire.GameInfoPayload
	gameInfoDirty bool

	dumpFile string

	ffCounter uint64

	lastWallTick time.Time
	wallFPS      *rateTracker
	logicalFPS   *rateTracker

	stateArena *checkpoint.Arena
}

// frameStateArenaName is the Arena this package registers with engine (if
// one is supplied to New) to carry the boundary's own framecount and
// virtual-time state through a Save/Load cycle alongside whatever the
// target registered itself. Without this, a restored snapshot would bring
// memory back to the save point but leave the controller-visible
// framecount and clock running forward from whenever Load happened to be
// called.
const frameStateArenaName = "frameboundary.state"

// frameStateArenaSize is framecount (uint64) + virtual Sec (int64) + Nsec
// (int64).
const frameStateArenaSize = 24

// New creates a Boundary. engine may be nil if no checkpoint support is
// wired in (SAVESTATE/LOADSTATE then always fail with an alert); sink may
// be nil in tests that don't care about emulated event delivery.
func New(conn *wire.Conn, reg *registry.Registry, timer *clock.Timer, engine *checkpoint.Engine, sink EventSink, cfg config.Shared) (*Boundary, error) {
	b := &Boundary{
		conn:       conn,
		registry:   reg,
		timer:      timer,
		engine:     engine,
		sink:       sink,
		cfg:        cfg,
		wallFPS:    &rateTracker{},
		logicalFPS: &rateTracker{},
	}

	if engine != nil {
		arena, err := checkpoint.NewArena(frameStateArenaName, frameStateArenaSize, true, false, false)
		if err != nil {
			return nil, err
		}
		if err := engine.Register(arena); err != nil {
			return nil, err
		}
		b.stateArena = arena
	}

	return b, nil
}

// Framecount returns the number of EndBoundary messages Enter has serviced
// since construction; a successful LoadState rewinds it to the value
// recorded when the loaded snapshot was saved.
func (b *Boundary) Framecount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.framecount
}

// Exiting reports whether a USERQUIT command (or a closed controller
// stream) has been observed.
func (b *Boundary) Exiting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exiting
}

// SetGameInfo marks info as the current game-info record and dirty, so the
// next Enter call's frame header includes a GAMEINFO message.
func (b *Boundary) SetGameInfo(info wire.GameInfoPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gameInfo = info
	b.gameInfoDirty = true
}

// skipFactor returns the smallest power of two k with k >= fps/16.
func skipFactor(fps float32) uint64 {
	k := uint64(1)
	for float32(k) < fps/16 {
		k <<= 1
	}
	return k
}

// SkipDraw reports whether the caller should skip rendering this frame.
// Fastforward frames draw once every k frames, where k is the smallest
// power of two with k >= targetFPS/16; non-fastforward frames always draw.
func (b *Boundary) SkipDraw(targetFPS float32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.cfg.Fastforward {
		return false
	}

	k := skipFactor(targetFPS)
	skip := b.ffCounter%k != 0
	b.ffCounter++
	return skip
}

// Enter is called by the target's render loop once per visual frame. It
// marks the caller as the checkpoint thread (once), optionally snapshots
// the framebuffer, emits the frame header to the controller and services
// commands until EndBoundary, then pushes the committed inputs into the
// event sink and advances framecount and the virtual clock by exactly one
// frame. All blocking controller I/O happens inside Enter; the rest of
// the target runs concurrently with the controller's UI.
//
// The clock advance and framecount increment happen after the command
// loop, not before it: a savestate taken mid-boundary then records the
// frame the controller was just told about, and a loadstate that rewinds
// both is not immediately re-advanced by the tail of the same Enter call.
func (b *Boundary) Enter(ctx context.Context, draw func(), shouldDraw bool) error {
	b.onceMain.Do(func() {
		b.registry.InitMain()
	})

	if shouldDraw && draw != nil {
		draw()
	}

	b.timer.EnterBoundary()
	defer b.timer.ExitBoundary()

	b.mu.Lock()
	captureScreen := b.cfg.CaptureScreen
	b.mu.Unlock()
	if captureScreen && shouldDraw && b.sink != nil {
		handle := b.sink.Snapshot()
		b.mu.Lock()
		b.lastFramebuffer = handle
		b.mu.Unlock()
	}

	if err := b.emitFrameHeader(); err != nil {
		return err
	}

	loaded, err := b.commandLoop(ctx)
	if err != nil {
		return err
	}
	if loaded {
		// framecount and the virtual clock have been rewound to the
		// snapshot's values and the controller already re-synced during
		// the re-handshake; the next Enter call picks up from there.
		return nil
	}

	b.mu.Lock()
	prev := b.lastInputs
	next := b.pendingInputs
	b.lastInputs = next
	frame := b.framecount
	b.mu.Unlock()

	if b.sink != nil {
		deferredKeys(b.sink, prev.Keyboard, next.Keyboard)
		deferredInputs(b.sink, frame, prev, next)
	}

	b.mu.Lock()
	b.framecount++
	b.mu.Unlock()
	b.timer.AdvanceFrame()

	b.updateRates()

	return nil
}

// updateRates folds this frame's wall-clock and virtual-clock elapsed time
// into the fps/lfps rolling trackers, resampled every 10 frames.
func (b *Boundary) updateRates() {
	now := time.Now()
	if !b.lastWallTick.IsZero() {
		b.wallFPS.tick(now.Sub(b.lastWallTick))
	}
	b.lastWallTick = now

	b.logicalFPS.tick(b.timer.FramePeriod())
}

// emitFrameHeader writes the fixed, ordered sequence of messages every
// boundary entry begins with: drained alerts, FRAMECOUNT_TIME, an optional
// GAMEINFO, FPS, then START_BOUNDARY.
func (b *Boundary) emitFrameHeader() error {
	for _, msg := range logger.DrainAlerts() {
		if err := b.conn.WriteString(wire.Alert, msg); err != nil {
			return errors.Errorf(errors.BoundaryProtocolError, err)
		}
	}

	ticks := b.timer.GetTicks()
	b.mu.Lock()
	frame := b.framecount
	b.mu.Unlock()

	if err := b.conn.WriteStruct(wire.FrameCountTime, wire.FrameCountTimePayload{
		Framecount: frame,
		Sec:        ticks.Sec,
		Nsec:       ticks.Nsec,
	}); err != nil {
		return errors.Errorf(errors.BoundaryProtocolError, err)
	}

	b.mu.Lock()
	info, dirty := b.gameInfo, b.gameInfoDirty
	b.gameInfoDirty = false
	b.mu.Unlock()
	if dirty {
		if err := b.conn.WriteStruct(wire.GameInfo, info); err != nil {
			return errors.Errorf(errors.BoundaryProtocolError, err)
		}
	}

	if err := b.conn.WriteStruct(wire.FPS, wire.FPSPayload{
		FPS:  b.wallFPS.current(),
		LFPS: b.logicalFPS.current(),
	}); err != nil {
		return errors.Errorf(errors.BoundaryProtocolError, err)
	}

	if err := b.conn.WriteMessage(wire.StartBoundary); err != nil {
		return errors.Errorf(errors.BoundaryProtocolError, err)
	}
	return nil
}

// commandLoop services controller messages until EndBoundary, a quit
// request, or a stream failure. A read failure (clean EOF or a truncated
// mid-message read) always terminates the loop with ErrUserQuit: the
// controller is gone either way, and the target is expected to exit
// cleanly rather than spin waiting for a connection that won't come back.
// A decode failure on an otherwise well-framed message is logged as an
// alert and the loop continues at the next message instead.
//
// loaded reports that a LoadState was serviced successfully: the loop has
// already completed the post-load re-handshake and the caller should
// treat the boundary as finished rather than expecting an EndBoundary.
func (b *Boundary) commandLoop(ctx context.Context) (loaded bool, err error) {
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		code, payload, err := b.conn.ReadMessage()
		if err != nil {
			if err != io.EOF {
				logger.Log(logger.Allow, "frameboundary", err)
			}
			b.mu.Lock()
			b.exiting = true
			b.mu.Unlock()
			return false, ErrUserQuit
		}

		switch code {
		case wire.EndBoundary:
			return false, nil

		case wire.UserQuit:
			b.mu.Lock()
			b.exiting = true
			b.mu.Unlock()
			return false, ErrUserQuit

		case wire.Config:
			if err := b.handleConfig(payload); err != nil {
				b.protocolAlert(err)
			}

		case wire.DumpFile:
			b.mu.Lock()
			b.dumpFile = string(payload)
			b.mu.Unlock()

		case wire.AllInputs:
			if err := b.handleAllInputs(payload); err != nil {
				b.protocolAlert(err)
			}

		case wire.Expose:
			b.reblit()

		case wire.PreviewInputs:
			// Preview never commits to pendingInputs; it only asks for a
			// re-blit, since there is no HUD overlay renderer in this
			// module to actually reflect the previewed inputs visually.
			if _, err := decodeInputs(payload); err != nil {
				b.protocolAlert(err)
			}
			b.reblit()

		case wire.SaveState:
			b.handleSaveState(ctx, string(payload))

		case wire.LoadState:
			ended, err := b.handleLoadState(ctx, string(payload))
			if ended {
				return true, err
			}

		case wire.StopEncode:
			// external collaborator, no-op in core.

		default:
			b.protocolAlert(errors.Errorf(errors.FramingUnknownCode, uint8(code)))
		}
	}
}

// protocolAlert logs err and surfaces it to the controller as an Alert
// message; a failure writing the alert itself is logged but otherwise
// swallowed, since the command loop must keep servicing messages.
func (b *Boundary) protocolAlert(err error) {
	logger.Log(logger.Allow, "frameboundary", err)
	if werr := b.conn.WriteString(wire.Alert, err.Error()); werr != nil {
		logger.Log(logger.Allow, "frameboundary", werr)
	}
}

func (b *Boundary) handleConfig(payload []byte) error {
	var cfg config.Shared
	if err := wire.DecodeJSON(payload, &cfg); err != nil {
		return err
	}
	b.mu.Lock()
	b.cfg = cfg
	b.mu.Unlock()
	b.timer.Reconfigure(cfg.FramerateNum, cfg.FramerateDen, cfg.Throttle)
	return nil
}

func decodeInputs(payload []byte) (wire.Inputs, error) {
	var in wire.Inputs
	if err := wire.DecodeStruct(payload, &in); err != nil {
		return wire.Inputs{}, err
	}
	return in, nil
}

func (b *Boundary) handleAllInputs(payload []byte) error {
	in, err := decodeInputs(payload)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.pendingInputs = in
	b.mu.Unlock()
	return nil
}

func (b *Boundary) reblit() {
	if b.sink == nil {
		return
	}
	b.mu.Lock()
	handle := b.lastFramebuffer
	b.mu.Unlock()
	b.sink.Expose(handle)
}

// handleSaveState invokes the checkpoint engine. A save failure is
// surfaced as an alert and is otherwise a no-op; the target keeps running
// either way.
func (b *Boundary) handleSaveState(ctx context.Context, path string) {
	if b.engine == nil {
		b.protocolAlert(errors.Errorf(errors.SnapshotNoFile, "no checkpoint engine configured"))
		return
	}
	b.snapshotFrameState()
	if err := b.engine.Save(ctx, path); err != nil {
		b.protocolAlert(err)
	}
}

// handleLoadState invokes the checkpoint engine's Load. A validation
// failure is recoverable: ended is false, the failure is surfaced as an
// alert, and the command loop continues normally. A successful load, by
// contrast, rewinds framecount and virtual time, sends LOADING_SUCCEEDED,
// runs the re-handshake itself (await CONFIG, re-emit FRAMECOUNT_TIME) and
// ends the command loop (ended is true), so Enter returns to the caller
// exactly as if EndBoundary had arrived: the loaded frame is treated as already
// complete rather than waiting for an EndBoundary the controller, having
// already been re-synced, has no reason to send.
func (b *Boundary) handleLoadState(ctx context.Context, path string) (ended bool, err error) {
	if b.engine == nil {
		b.protocolAlert(errors.Errorf(errors.SnapshotNoFile, "no checkpoint engine configured"))
		return false, nil
	}

	if err := b.engine.Load(ctx, path); err != nil {
		b.protocolAlert(err)
		return false, nil
	}

	b.restoreFrameState()

	if err := b.conn.WriteMessage(wire.LoadingSucceeded); err != nil {
		return true, errors.Errorf(errors.BoundaryProtocolError, err)
	}

	return true, b.reHandshake(ctx)
}

// reHandshake is the post-load resync: the harness expects a CONFIG reply
// (treated as a full replace, never a merge), then re-emits
// FRAMECOUNT_TIME so the controller's own framecount display catches up
// with the rewind.
func (b *Boundary) reHandshake(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		code, payload, err := b.conn.ReadMessage()
		if err != nil {
			b.mu.Lock()
			b.exiting = true
			b.mu.Unlock()
			return ErrUserQuit
		}
		if code != wire.Config {
			b.protocolAlert(errors.Errorf(errors.BoundaryProtocolError, "expected CONFIG during re-handshake"))
			continue
		}
		if err := b.handleConfig(payload); err != nil {
			b.protocolAlert(err)
			continue
		}
		break
	}

	ticks := b.timer.GetTicks()
	b.mu.Lock()
	frame := b.framecount
	b.mu.Unlock()

	return b.conn.WriteStruct(wire.FrameCountTime, wire.FrameCountTimePayload{
		Framecount: frame,
		Sec:        ticks.Sec,
		Nsec:       ticks.Nsec,
	})
}
