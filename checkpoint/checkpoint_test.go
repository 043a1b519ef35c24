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

package checkpoint_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jsle-tas/tascore/checkpoint"
	"github.com/jsle-tas/tascore/registry"
	"github.com/jsle-tas/tascore/test"
)

func newEngineWithArena(t *testing.T, name string, size int) (*checkpoint.Engine, *checkpoint.Arena) {
	t.Helper()
	reg := registry.New()
	reg.InitMain()

	a, err := checkpoint.NewArena(name, size, true, false, false)
	test.DemandSuccess(t, err)
	t.Cleanup(func() { a.Close() })

	e := checkpoint.NewEngine(reg)
	test.DemandSuccess(t, e.Register(a))
	return e, a
}

// TestSaveLoadIdentity: a snapshot, taken after the arena is mutated,
// restores the exact bytes it was saved with even after the arena is
// mutated again.
func TestSaveLoadIdentity(t *testing.T) {
	e, a := newEngineWithArena(t, "heap", 4096)

	copy(a.Bytes(), bytes.Repeat([]byte{0xAB}, a.Len()))
	saved := append([]byte(nil), a.Bytes()...)

	path := filepath.Join(t.TempDir(), "snap.tascore")
	test.DemandSuccess(t, e.Save(context.Background(), path))

	// mutate after save; load must restore the pre-mutation bytes.
	copy(a.Bytes(), bytes.Repeat([]byte{0xCD}, a.Len()))

	test.DemandSuccess(t, e.Load(context.Background(), path))
	test.ExpectEquality(t, a.Bytes(), saved)
}

func TestCheckRestoreRejectsBadMagic(t *testing.T) {
	e, _ := newEngineWithArena(t, "heap", 64)

	path := filepath.Join(t.TempDir(), "bad.tascore")
	test.DemandSuccess(t, os.WriteFile(path, []byte("not a snapshot at all, too short"), 0o644))

	err := e.CheckRestore(path)
	test.DemandFailure(t, err)
}

func TestLoadLeavesStateUntouchedOnValidationFailure(t *testing.T) {
	e, a := newEngineWithArena(t, "heap", 64)
	copy(a.Bytes(), bytes.Repeat([]byte{0x11}, a.Len()))
	before := append([]byte(nil), a.Bytes()...)

	path := filepath.Join(t.TempDir(), "bad.tascore")
	test.DemandSuccess(t, os.WriteFile(path, []byte("garbage"), 0o644))

	err := e.Load(context.Background(), path)
	test.DemandFailure(t, err)
	test.ExpectEquality(t, a.Bytes(), before)
}

func TestSaveTwiceWithNoMutationProducesIdenticalPayloads(t *testing.T) {
	e, a := newEngineWithArena(t, "heap", 256)
	copy(a.Bytes(), bytes.Repeat([]byte{0x42}, a.Len()))

	path1 := filepath.Join(t.TempDir(), "a.tascore")
	path2 := filepath.Join(t.TempDir(), "b.tascore")
	test.DemandSuccess(t, e.Save(context.Background(), path1))
	test.DemandSuccess(t, e.Save(context.Background(), path2))

	got1, err := os.ReadFile(path1)
	test.DemandSuccess(t, err)
	got2, err := os.ReadFile(path2)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, got1, got2)
}

// TestSavePanicsOffCheckpointThread confirms Save refuses to run on any
// goroutine but the one that called Registry.InitMain: calling it from
// elsewhere would have that goroutine wait on its own quiesce point
// rather than fail cleanly.
func TestSavePanicsOffCheckpointThread(t *testing.T) {
	e, _ := newEngineWithArena(t, "heap", 64)

	done := make(chan any, 1)
	go func() {
		defer func() { done <- recover() }()
		_ = e.Save(context.Background(), filepath.Join(t.TempDir(), "snap.tascore"))
	}()

	if r := <-done; r == nil {
		t.Fatal("expected Save to panic when called off the checkpoint thread")
	}
}

func TestRegisterDuplicateNameFails(t *testing.T) {
	e, a := newEngineWithArena(t, "heap", 64)
	dup, err := checkpoint.NewArena("heap", 64, true, false, false)
	test.DemandSuccess(t, err)
	defer dup.Close()

	err = e.Register(dup)
	test.DemandFailure(t, err)
	_ = a
}
