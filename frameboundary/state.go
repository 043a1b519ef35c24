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
	"encoding/binary"

	"github.com/jsle-tas/tascore/clock"
)

// snapshotFrameState encodes the current framecount and virtual time into
// the registered frame-state arena, immediately before a Save: the
// checkpoint engine has no notion of framecount or virtual time on its
// own, so this package rides along on the same arena mechanism the target
// itself would use to persist its own memory.
func (b *Boundary) snapshotFrameState() {
	if b.stateArena == nil {
		return
	}

	b.mu.Lock()
	frame := b.framecount
	b.mu.Unlock()
	ticks := b.timer.GetTicks()

	var buf [frameStateArenaSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], frame)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(ticks.Sec))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(ticks.Nsec))
	_ = b.stateArena.CopyFrom(buf[:])
}

// restoreFrameState is the mirror of snapshotFrameState, called
// immediately after a successful Load: it replaces this boundary's
// framecount and the timer's virtual clock with whatever was current at
// the moment the matching Save ran, rather than leaving them advanced by
// whatever happened between Save and Load.
func (b *Boundary) restoreFrameState() {
	if b.stateArena == nil {
		return
	}

	buf := b.stateArena.Bytes()
	if len(buf) < frameStateArenaSize {
		return
	}

	frame := binary.LittleEndian.Uint64(buf[0:8])
	sec := int64(binary.LittleEndian.Uint64(buf[8:16]))
	nsec := int64(binary.LittleEndian.Uint64(buf[16:24]))

	b.mu.Lock()
	b.framecount = frame
	b.mu.Unlock()

	b.timer.SetTicks(clock.TimeHolder{Sec: sec, Nsec: nsec})
}
