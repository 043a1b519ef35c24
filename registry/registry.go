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

// Package registry implements the thread registry: the arena of
// descriptors tracking every goroutine the checkpoint engine needs to
// quiesce before it can safely serialize memory, and the two-phase
// suspend/resume primitive built on a cooperative quiesce point rather
// than asynchronous signal delivery, which Go gives no safe handle to.
package registry

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jsle-tas/tascore/assert"
	"github.com/jsle-tas/tascore/errors"
	"github.com/jsle-tas/tascore/logger"
)

// quiescePoint is the rendezvous shared by every descriptor in a Registry:
// a counting semaphore the checkpoint thread drains once per suspended
// descriptor, and a resume gate held for write while threads must stay
// suspended.
type quiescePoint struct {
	notify *semaphore.Weighted
	resume *sync.RWMutex
}

// Registry owns the descriptor arena plus the quiesce rendezvous shared by
// every descriptor it creates.
type Registry struct {
	listMu sync.Mutex
	arena  []*Descriptor // index == Handle.index; nil slots are free
	free   []int         // stack of free arena indices
	gen    []uint32      // generation per arena slot, bumped on recycle

	checkpointThread   *Descriptor
	checkpointThreadID uint64 // assert.GetGoRoutineID() of the goroutine that called InitMain

	quiesce *quiescePoint

	// suspendBackoff bounds the quiesce scan's retry sleep; exposed as a
	// field (rather than a constant) purely so tests can shrink it.
	suspendBackoff time.Duration
}

// notifyCapacity bounds how many outstanding "reached Suspended" posts the
// quiesce semaphore can track between drains; generously sized since a
// single process realistically never tracks anywhere near this many
// goroutines at once.
const notifyCapacity = 1 << 20

// New creates an empty Registry.
func New() *Registry {
	notify := semaphore.NewWeighted(notifyCapacity)
	// Drain it to zero available permits so it behaves like a POSIX
	// semaphore initialized to 0: Release(1) posts, Acquire(ctx, n) blocks
	// until n posts have arrived since the last such drain.
	_ = notify.Acquire(context.Background(), notifyCapacity)

	return &Registry{
		quiesce: &quiescePoint{
			notify: notify,
			resume: &sync.RWMutex{},
		},
		suspendBackoff: 10 * time.Microsecond,
	}
}

// InitMain allocates the descriptor for the calling goroutine and marks it
// CheckpointThread. It must be called exactly once per Registry, before
// any call to Register.
func (r *Registry) InitMain() *Descriptor {
	r.listMu.Lock()
	defer r.listMu.Unlock()

	if r.checkpointThread != nil {
		fatal(errors.Errorf(errors.StateTransitionDenied, "main", "uninitialized", "checkpoint-thread"))
	}

	d := r.allocLocked("main", InheritFlags{})
	d.state.Store(int32(CheckpointThread))
	r.checkpointThread = d
	r.checkpointThreadID = assert.GetGoRoutineID()
	return d
}

// OnCheckpointThread reports whether the calling goroutine is the one
// that called InitMain. The checkpoint engine's Save/Load are
// checkpoint-thread-only operations; this lets them assert that contract
// instead of deadlocking a caller that would otherwise wait on its own
// quiesce point.
func (r *Registry) OnCheckpointThread() bool {
	r.listMu.Lock()
	defer r.listMu.Unlock()
	return r.checkpointThread != nil && assert.GetGoRoutineID() == r.checkpointThreadID
}

// CheckpointThread returns the descriptor InitMain installed, or nil if
// InitMain has not been called yet. A snapshot writer uses this to record
// the checkpoint thread's handle as its resume token.
func (r *Registry) CheckpointThread() *Descriptor {
	r.listMu.Lock()
	defer r.listMu.Unlock()
	return r.checkpointThread
}

// Register allocates a descriptor for a newly spawned goroutine. The
// goroutine's first act after spawning should be to call Register, then
// defer d.Exit(nil) (or the terminal error) at the top of its body.
func (r *Registry) Register(name string, inherit InheritFlags) *Descriptor {
	r.listMu.Lock()
	defer r.listMu.Unlock()
	return r.allocLocked(name, inherit)
}

// allocLocked must be called with listMu held.
func (r *Registry) allocLocked(name string, inherit InheritFlags) *Descriptor {
	d := &Descriptor{
		name:       name,
		inherit:    inherit,
		quiesce:    r.quiesce,
		joinResult: make(chan error, 1),
	}

	var idx int
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
		r.arena[idx] = d
	} else {
		idx = len(r.arena)
		r.arena = append(r.arena, d)
		r.gen = append(r.gen, 0)
	}

	d.handle = Handle{index: idx, generation: r.gen[idx]}
	return d
}

// recycleLocked must be called with listMu held. It returns the slot to
// the free-list and bumps its generation, so a Handle held past its
// Descriptor's life never matches the slot's next occupant.
func (r *Registry) recycleLocked(d *Descriptor) {
	idx := d.handle.index
	r.gen[idx]++
	r.arena[idx] = nil
	r.free = append(r.free, idx)
}

// liveNonCheckpoint returns a snapshot of every non-nil descriptor currently tracked,
// excluding the checkpoint thread.
func (r *Registry) liveNonCheckpoint() []*Descriptor {
	r.listMu.Lock()
	defer r.listMu.Unlock()

	out := make([]*Descriptor, 0, len(r.arena))
	for _, d := range r.arena {
		if d == nil || d == r.checkpointThread {
			continue
		}
		out = append(out, d)
	}
	return out
}

// SuspendAll brings every non-checkpoint live descriptor to Suspended. It
// must be called from the checkpoint thread. The scan repeats, with a
// bounded backoff between passes, until every descriptor is accounted for
// or ctx is done.
func (r *Registry) SuspendAll(ctx context.Context) error {
	r.quiesce.resume.Lock() // held until ResumeAll; blocks every Checkpoint() call from returning

	var accounted int64
	backoff := r.suspendBackoff

	for {
		descriptors := r.liveNonCheckpoint()
		changed := false
		pending := 0

		for _, d := range descriptors {
			switch d.State() {
			case Running:
				if d.arm() {
					changed = true
				}
				pending++
			case Signaled:
				// armed but the goroutine hasn't reached its next
				// Checkpoint() call yet; if it exits instead, it will show
				// up as Zombie on a later pass (Exit() overwrites state
				// unconditionally) rather than lingering here — that's the
				// thread-race-loss case, absorbed below, never fatal.
				pending++
			case Zombie:
				d.cas(Zombie, FakeZombie)
				logger.Logf(logger.Allow, "registry", "thread %s lost the race to suspend, reaping", d.name)
				r.collect(d)
				changed = true
			case SuspendInProgress, Suspended:
				// accounted for below
			}
		}

		accounted = int64(countAccounted(descriptors))

		if pending == 0 {
			break
		}
		if changed {
			backoff = r.suspendBackoff
		} else {
			time.Sleep(backoff)
			if backoff < 10*time.Millisecond {
				backoff *= 2
			}
		}

		select {
		case <-ctx.Done():
			r.quiesce.resume.Unlock()
			return ctx.Err()
		default:
		}
	}

	if accounted > 0 {
		if err := r.quiesce.notify.Acquire(ctx, accounted); err != nil {
			r.quiesce.resume.Unlock()
			return err
		}
	}

	return nil
}

// countAccounted counts descriptors already in SuspendInProgress or
// Suspended.
func countAccounted(descriptors []*Descriptor) int {
	n := 0
	for _, d := range descriptors {
		switch d.State() {
		case SuspendInProgress, Suspended:
			n++
		}
	}
	return n
}

// collect recycles a FakeZombie's slot immediately if it was detached (no
// one will ever call Join for it); otherwise its join result is left
// buffered in d.joinResult for a future Join call to consume.
func (r *Registry) collect(d *Descriptor) {
	if !d.detached.Load() {
		return
	}
	r.listMu.Lock()
	defer r.listMu.Unlock()
	r.recycleLocked(d)
}

// Join blocks until d's goroutine has exited and returns its terminal
// error, then recycles d's slot. Join must not be called more than once
// per descriptor, and must not be called on a detached descriptor.
func (r *Registry) Join(d *Descriptor) error {
	err := <-d.joinResult
	r.listMu.Lock()
	r.recycleLocked(d)
	r.listMu.Unlock()
	return err
}

// ResumeAll releases every descriptor blocked in Checkpoint.
func (r *Registry) ResumeAll() {
	r.quiesce.resume.Unlock()
}

// fatal logs err and panics. Reserved for invariant violations this
// package cannot recover from: an invalid state transition, or a
// descriptor that could not be accounted for despite the registry's own
// bookkeeping believing it was live.
func fatal(err error) {
	logger.Log(logger.Allow, "registry", err)
	panic(err)
}
