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

package registry

import (
	"context"
	"sync/atomic"

	"github.com/jsle-tas/tascore/errors"
)

// Handle identifies a descriptor within a Registry's arena. It stays valid
// for the lifetime of the descriptor it names, even after recycling (a
// recycled slot gets a new descriptor with a bumped generation baked into
// its handle, so a stale Handle never silently refers to the wrong thread).
type Handle struct {
	index      int
	generation uint32
}

// InheritFlags mirrors, for a newly registered goroutine, whatever
// logging-suppression mode the goroutine that spawned it was in. A
// goroutine spawned while the harness itself is issuing "native" calls on
// behalf of the game inherits that same suppression, so nested spawns
// don't suddenly start logging.
type InheritFlags struct {
	Native  bool
	OwnCode bool
	NoLog   bool
}

// Descriptor tracks one live goroutine known to the registry.
type Descriptor struct {
	handle Handle
	name   string

	state atomic.Int32 // holds a State

	inherit  InheritFlags
	detached atomic.Bool

	quiesce *quiescePoint

	joinResult chan error // closed with the goroutine's terminal error, nil on clean exit
}

// Handle returns the descriptor's stable identity within its Registry.
func (d *Descriptor) Handle() Handle {
	return d.handle
}

// Index returns the arena slot h names.
func (h Handle) Index() int {
	return h.index
}

// Generation returns the generation stamped into h at allocation time.
func (h Handle) Generation() uint32 {
	return h.generation
}

// Name returns the caller-supplied label the descriptor was registered
// with, used only for logging.
func (d *Descriptor) Name() string {
	return d.name
}

// State returns the descriptor's current position in the quiesce state
// machine.
func (d *Descriptor) State() State {
	return State(d.state.Load())
}

// cas performs one compare-and-set state transition and reports whether it
// took place. Arming, Checkpoint's entry and wake-up steps and SuspendAll's
// zombie collection go through it; Checkpoint's step to Suspended, Exit and
// InitMain store the state directly. A failed wake-up in Checkpoint is a
// fatal contract breach: it indicates two goroutines disagreed about the
// descriptor's state, which the rest of the quiesce protocol depends on
// never happening.
func (d *Descriptor) cas(from, to State) bool {
	return d.state.CompareAndSwap(int32(from), int32(to))
}

// arm is called by the checkpoint thread during SuspendAll to mark a
// Running descriptor as wanted for suspension. It is the registry's
// analogue of "deliver the suspend signal": the next time this
// descriptor's goroutine calls Checkpoint, it will actually pause.
func (d *Descriptor) arm() bool {
	return d.cas(Running, Signaled)
}

// Checkpoint is the cooperative safepoint every registered goroutine must
// call periodically from a point in its own control flow where pausing is
// safe. If the checkpoint thread has armed this descriptor, Checkpoint
// blocks until ResumeAll releases it; otherwise it returns immediately.
// The goroutine suspends itself at a point of its own choosing rather
// than being interrupted asynchronously, so its stack is always in a
// state the checkpoint engine can serialize around.
func (d *Descriptor) Checkpoint(ctx context.Context) error {
	if !d.cas(Signaled, SuspendInProgress) {
		return nil
	}

	d.state.Store(int32(Suspended))
	d.quiesce.notify.Release(1)

	d.quiesce.resume.RLock()
	defer d.quiesce.resume.RUnlock()

	if !d.cas(Suspended, Running) {
		fatal(errors.Errorf(errors.StateTransitionDenied, d.name, d.State(), Running))
	}

	return ctx.Err()
}

// Detach marks the descriptor as not needing its terminal error collected
// by anyone. It only sets the flag and does not recycle the slot itself:
// an exited, detached descriptor is recycled by the next SuspendAll scan.
func (d *Descriptor) Detach() {
	d.detached.Store(true)
}

// Exit marks the calling goroutine's descriptor as terminated. Callers are
// expected to defer this at the top of their registered goroutine.
func (d *Descriptor) Exit(err error) {
	d.state.Store(int32(Zombie))
	if d.joinResult != nil {
		d.joinResult <- err
		close(d.joinResult)
	}
}
