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

package registry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jsle-tas/tascore/registry"
	"github.com/jsle-tas/tascore/test"
)

func TestInitMainMarksCheckpointThread(t *testing.T) {
	r := registry.New()
	main := r.InitMain()
	test.ExpectEquality(t, main.State(), registry.CheckpointThread)
	test.ExpectEquality(t, main.Name(), "main")
}

func TestRegisterStartsRunning(t *testing.T) {
	r := registry.New()
	r.InitMain()
	d := r.Register("worker", registry.InheritFlags{})
	test.ExpectEquality(t, d.State(), registry.Running)
}

func TestExitThenJoinReturnsTerminalError(t *testing.T) {
	r := registry.New()
	r.InitMain()
	d := r.Register("worker", registry.InheritFlags{})

	sentinel := errors.New("boom")
	go d.Exit(sentinel)

	got := r.Join(d)
	test.ExpectEquality(t, got, sentinel)
}

func TestDetachedDescriptorDoesNotBlockJoin(t *testing.T) {
	r := registry.New()
	r.InitMain()
	d := r.Register("worker", registry.InheritFlags{})
	d.Detach()
	d.Exit(nil)
	// a detached descriptor is reaped by the registry itself; nothing here
	// should block or panic.
}

// TestSuspendResumeCycle mirrors the thread-quiesce scenario: several
// worker goroutines loop calling Checkpoint, the checkpoint thread brings
// them all to Suspended with SuspendAll, observes the invariant that every
// non-checkpoint descriptor is Suspended, then releases them with
// ResumeAll.
func TestSuspendResumeCycle(t *testing.T) {
	r := registry.New()
	r.InitMain()

	const workers = 8
	descriptors := make([]*registry.Descriptor, workers)
	stop := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		d := r.Register("worker", registry.InheritFlags{})
		descriptors[i] = d
		wg.Add(1)
		go func(d *registry.Descriptor) {
			defer wg.Done()
			defer d.Exit(nil)
			ctx := context.Background()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if err := d.Checkpoint(ctx); err != nil {
					return
				}
			}
		}(d)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	test.DemandSuccess(t, r.SuspendAll(ctx))

	for _, d := range descriptors {
		test.ExpectEquality(t, d.State(), registry.Suspended)
	}

	r.ResumeAll()

	close(stop)
	for _, d := range descriptors {
		test.DemandSuccess(t, r.Join(d))
	}
	wg.Wait()
}

// TestSuspendAllAbsorbsRaceLoss exercises a worker that exits on its own
// instead of reaching its next Checkpoint call after being armed: SuspendAll
// must treat that as a lost race rather than failing the suspend.
func TestSuspendAllAbsorbsRaceLoss(t *testing.T) {
	r := registry.New()
	r.InitMain()

	d := r.Register("short-lived", registry.InheritFlags{})
	d.Detach()

	// exit immediately, before any SuspendAll scan can arm it.
	d.Exit(nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	test.DemandSuccess(t, r.SuspendAll(ctx))
	r.ResumeAll()
}

// TestSuspendAllTimesOutWhenAThreadNeverCheckpoints confirms SuspendAll
// respects ctx cancellation rather than blocking forever on a goroutine
// that never calls Checkpoint.
func TestSuspendAllTimesOutWhenAThreadNeverCheckpoints(t *testing.T) {
	r := registry.New()
	r.InitMain()

	d := r.Register("stuck", registry.InheritFlags{})
	d.Detach()
	defer d.Exit(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.SuspendAll(ctx)
	test.DemandFailure(t, err)
}

func TestExactlyOneCheckpointThread(t *testing.T) {
	r := registry.New()
	main := r.InitMain()
	worker := r.Register("worker", registry.InheritFlags{})
	defer worker.Exit(nil)

	count := 0
	for _, d := range []*registry.Descriptor{main, worker} {
		if d.State() == registry.CheckpointThread {
			count++
		}
	}
	test.ExpectEquality(t, count, 1)
}

// TestOnCheckpointThread exercises the goroutine-identity check that
// CheckpointEngine.Save/Load rely on: true on the goroutine that called
// InitMain, false everywhere else, including before InitMain has run.
func TestOnCheckpointThread(t *testing.T) {
	r := registry.New()
	test.ExpectEquality(t, r.OnCheckpointThread(), false)

	r.InitMain()
	test.ExpectEquality(t, r.OnCheckpointThread(), true)

	done := make(chan bool)
	go func() { done <- r.OnCheckpointThread() }()
	test.ExpectEquality(t, <-done, false)
}
