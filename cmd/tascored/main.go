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

// Command tascored is a demo harness process: it listens for a single
// controller connection, wires up the clock/registry/checkpoint/
// frameboundary stack against one registered memory arena, and drives a
// synthetic render loop through Boundary.Enter until the controller asks
// it to quit or the connection drops.
//
// It exists to show the packages wired together end to end, not as a
// production emulator frontend: there is no real renderer or input device
// behind it, just a demoSink that logs what it would have done.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/jsle-tas/tascore/checkpoint"
	"github.com/jsle-tas/tascore/clock"
	"github.com/jsle-tas/tascore/config"
	"github.com/jsle-tas/tascore/frameboundary"
	"github.com/jsle-tas/tascore/logger"
	"github.com/jsle-tas/tascore/registry"
	"github.com/jsle-tas/tascore/wire"
)

// heapArenaName is the one demo arena registered with the checkpoint
// engine; a real target would register one arena per memory region it
// wants save/load coverage for.
const heapArenaName = "tascored.heap"
const heapArenaSize = 1 << 20

func main() {
	listenAddr := flag.String("listen", "127.0.0.1:7940", "address to listen for a controller connection")
	configPath := flag.String("config", "", "path to a TOML config file; defaults are used if empty or absent")
	snapshotDir := flag.String("snapshot-dir", "", "directory savestate paths from the controller are expected to live under")
	flag.Parse()

	if err := run(*listenAddr, *configPath, *snapshotDir); err != nil {
		logger.Write(os.Stderr)
		fmt.Fprintln(os.Stderr, "tascored:", err)
		os.Exit(1)
	}
}

func run(listenAddr, configPath, snapshotDir string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	if snapshotDir != "" {
		if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
			return fmt.Errorf("preparing snapshot dir: %w", err)
		}
		logger.Logf(logger.Allow, "tascored", "savestate paths are expected under %s", snapshotDir)
	}

	reg := registry.New()
	tm := clock.NewTimerFromConfig(cfg)
	engine := checkpoint.NewEngine(reg)

	arena, err := checkpoint.NewArena(heapArenaName, heapArenaSize, true, false, false)
	if err != nil {
		return fmt.Errorf("mapping heap arena: %w", err)
	}
	defer arena.Close()
	if err := engine.Register(arena); err != nil {
		return fmt.Errorf("registering heap arena: %w", err)
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listenAddr, err)
	}
	defer ln.Close()
	logger.Logf(logger.Allow, "tascored", "listening for a controller on %s", ln.Addr())

	conn, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("accepting controller connection: %w", err)
	}
	defer conn.Close()
	logger.Logf(logger.Allow, "tascored", "controller connected from %s", conn.RemoteAddr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b, err := frameboundary.New(wire.NewConn(conn), reg, tm, engine, &demoSink{}, cfg)
	if err != nil {
		return fmt.Errorf("constructing frame boundary: %w", err)
	}
	b.SetGameInfo(wire.GameInfoPayload{Width: 320, Height: 240})

	return renderLoop(ctx, b)
}

// renderLoop stands in for a target's own main loop: one Enter call per
// synthetic frame, drawing (or not, per SkipDraw) a placeholder frame.
func renderLoop(ctx context.Context, b *frameboundary.Boundary) error {
	const targetFPS = 60

	for !b.Exiting() {
		shouldDraw := !b.SkipDraw(targetFPS)
		draw := func() {
			logger.Logf(logger.Allow, "tascored", "frame %d drawn", b.Framecount())
		}

		if err := b.Enter(ctx, draw, shouldDraw); err != nil {
			if errors.Is(err, frameboundary.ErrUserQuit) {
				logger.Log(logger.Allow, "tascored", "controller requested quit")
				return nil
			}
			return fmt.Errorf("frame %d: %w", b.Framecount(), err)
		}
	}
	return nil
}

// demoSink is an EventSink that only logs what it would have delivered;
// there is no real input device or framebuffer behind this command.
type demoSink struct{}

func (s *demoSink) PushKey(down bool, code int32) {
	logger.Logf(logger.Allow, "tascored", "key %d down=%v", code, down)
}

func (s *demoSink) PushControllerAdded(id int32) {
	logger.Logf(logger.Allow, "tascored", "controller %d added", id)
}

func (s *demoSink) PushControllerAxis(id int32, axis int32, value int16) {
	logger.Logf(logger.Allow, "tascored", "controller %d axis %d = %d", id, axis, value)
}

func (s *demoSink) PushMouseMotion(dx, dy int32) {
	logger.Logf(logger.Allow, "tascored", "mouse moved by (%d, %d)", dx, dy)
}

func (s *demoSink) PushMouseButton(button int32, down bool) {
	logger.Logf(logger.Allow, "tascored", "mouse button %d down=%v", button, down)
}

func (s *demoSink) Snapshot() frameboundary.FramebufferHandle {
	return time.Now()
}

func (s *demoSink) Expose(h frameboundary.FramebufferHandle) {
	logger.Logf(logger.Allow, "tascored", "re-blit of framebuffer snapshotted at %v", h)
}
