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

package checkpoint

import (
	"context"
	"encoding/binary"
	"os"
	"sort"
	"sync"
	"unsafe"

	"github.com/jsle-tas/tascore/errors"
	"github.com/jsle-tas/tascore/logger"
	"github.com/jsle-tas/tascore/registry"
)

// AudioSink is the external collaborator an Engine asks to close its
// output device before a Save: hardware handles cannot be snapshotted, and
// the target is expected to reopen one on its next frame.
type AudioSink interface {
	Close() error
}

// Engine owns a set of registered arenas and serializes or restores them,
// using a Registry to quiesce every other goroutine around the I/O.
type Engine struct {
	mu sync.Mutex

	registry *registry.Registry
	policy   RegionPolicy
	sink     AudioSink

	arenas map[string]*Arena
}

// Option configures a new Engine.
type Option func(*Engine)

// WithPolicy sets the RegionPolicy applied to every Save.
func WithPolicy(p RegionPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithAudioSink installs the AudioSink an Engine closes before each Save.
func WithAudioSink(sink AudioSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// NewEngine creates an Engine bound to reg.
func NewEngine(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		arenas:   make(map[string]*Arena),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a to the set of arenas this Engine will include in a
// snapshot. Registering two arenas under the same name is an error.
func (e *Engine) Register(a *Arena) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.arenas[a.name]; exists {
		return errors.Errorf(errors.RegionMapFailed, a.name, "already registered")
	}
	e.arenas[a.name] = a
	e.crossCheckMapping(a)
	return nil
}

// crossCheckMapping compares an arena's registered writable/exec bits
// against what the kernel actually reports for its address range, logging
// a mismatch rather than failing registration: the arena's own mmap call
// is the source of truth for what protection it asked for, this is a
// diagnostic aid for catching a stale registration after a Protect call
// changed the mapping out from under the Engine's bookkeeping.
func (e *Engine) crossCheckMapping(a *Arena) {
	entries, err := readSelfMaps()
	if err != nil || entries == nil {
		return
	}
	start, _ := arenaBounds(a)
	entry, ok := findEntry(entries, start)
	if !ok {
		return
	}
	if entry.write != a.writable || entry.exec != a.exec {
		logger.Logf(logger.Allow, "checkpoint", "arena %s registered bits (writable=%v exec=%v) disagree with kernel mapping (writable=%v exec=%v)",
			a.name, a.writable, a.exec, entry.write, entry.exec)
	}
}

func arenaBounds(a *Arena) (start, end uint64) {
	mem := a.Bytes()
	if len(mem) == 0 {
		return 0, 0
	}
	start = uint64(uintptr(unsafe.Pointer(&mem[0])))
	return start, start + uint64(len(mem))
}

// sortedArenaNames returns the registered arena names in a stable order,
// so successive Save calls with no intervening mutation produce
// byte-identical region orderings.
func (e *Engine) sortedArenaNames() []string {
	names := make([]string, 0, len(e.arenas))
	for name := range e.arenas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) collectRegions() []Region {
	names := e.sortedArenaNames()
	regions := make([]Region, 0, len(names))
	for _, name := range names {
		a := e.arenas[name]
		start, end := arenaBounds(a)

		region := Region{
			Name:  name,
			Start: start,
			End:   end,
			Prot:  protBits(a),
			Flags: flagBits(a),
			Kind:  PayloadRaw,
		}
		if region.excludedBy(e.policy, a.writable, a.shared, a.exec) {
			region.Kind = PayloadZeroFill
		} else {
			payload := make([]byte, len(a.Bytes()))
			copy(payload, a.Bytes())
			region.Payload = payload
		}
		regions = append(regions, region)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Start < regions[j].Start })
	return regions
}

func protBits(a *Arena) uint32 {
	var p uint32 = 1 // read, always mapped readable
	if a.writable {
		p |= 2
	}
	if a.exec {
		p |= 4
	}
	return p
}

func flagBits(a *Arena) uint32 {
	if a.shared {
		return 1
	}
	return 0
}

func (e *Engine) resumeToken() [resumeTokenSize]byte {
	var token [resumeTokenSize]byte
	d := e.registry.CheckpointThread()
	if d == nil {
		return token
	}
	h := d.Handle()
	binary.LittleEndian.PutUint32(token[0:4], uint32(h.Index()))
	binary.LittleEndian.PutUint32(token[4:8], h.Generation())
	return token
}

// Save quiesces every non-checkpoint goroutine and writes every registered
// arena (subject to the Engine's RegionPolicy) to path. It must be called
// from the checkpoint thread.
func (e *Engine) Save(ctx context.Context, path string) error {
	if !e.registry.OnCheckpointThread() {
		fatalWrongThread("Save")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sink != nil {
		if err := e.sink.Close(); err != nil {
			logger.Logf(logger.Allow, "checkpoint", "audio sink close failed: %v", err)
		}
	}

	if err := e.registry.SuspendAll(ctx); err != nil {
		return err
	}

	regions := e.collectRegions()
	token := e.resumeToken()

	err := e.writeSnapshotFile(path, token, regions)

	e.registry.ResumeAll()
	return err
}

func (e *Engine) writeSnapshotFile(path string, token [resumeTokenSize]byte, regions []Region) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf(errors.SnapshotNoFile, err)
	}

	if err := writeSnapshot(f, token, regions); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return errors.Errorf(errors.SnapshotTruncated, err)
	}
	return nil
}

// CheckRestore validates that path names a readable, correctly-versioned
// snapshot whose raw regions each fit a currently registered arena of the
// same name and size. It never touches the registry: a failure here is
// recoverable, and the target is expected to keep running.
func (e *Engine) CheckRestore(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, _, err := e.loadSnapshotFile(path)
	return err
}

func (e *Engine) loadSnapshotFile(path string) (snapshotHeader, []Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return snapshotHeader{}, nil, errors.Errorf(errors.SnapshotNoFile, err)
	}
	defer f.Close()

	hdr, regions, err := readSnapshot(f)
	if err != nil {
		return hdr, nil, err
	}

	for _, r := range regions {
		if r.Kind != PayloadRaw {
			continue
		}
		a, ok := e.arenas[r.Name]
		if !ok {
			return hdr, nil, errors.Errorf(errors.SnapshotVersionSkew, r.Name, "no registered arena")
		}
		if uint64(a.Len()) != r.End-r.Start {
			return hdr, nil, errors.Errorf(errors.SnapshotVersionSkew, r.Name, "arena size mismatch")
		}
	}
	return hdr, regions, nil
}

// Load validates path (the same checks CheckRestore makes, via
// loadSnapshotFile), then quiesces every non-checkpoint
// goroutine and overwrites every registered arena named in the snapshot
// with its saved bytes. Once any arena has been overwritten, a subsequent
// failure is unrecoverable and Load terminates the process after flushing
// the log, since a partially-restored arena cannot be reasoned about.
func (e *Engine) Load(ctx context.Context, path string) error {
	if !e.registry.OnCheckpointThread() {
		fatalWrongThread("Load")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	_, regions, err := e.loadSnapshotFile(path)
	if err != nil {
		return err
	}

	if err := e.registry.SuspendAll(ctx); err != nil {
		return err
	}

	overwriting := false
	for _, r := range regions {
		if r.Kind != PayloadRaw {
			continue
		}
		a := e.arenas[r.Name]
		if err := a.CopyFrom(r.Payload); err != nil {
			if overwriting {
				fatalRestore(err)
			}
			e.registry.ResumeAll()
			return err
		}
		overwriting = true
	}

	e.registry.ResumeAll()
	return nil
}

// fatalRestore logs err, writes the buffered log to stderr, and
// terminates the process. Reserved for the one case Load cannot recover
// from: a restore that failed after some arenas were already overwritten.
func fatalRestore(err error) {
	logger.Log(logger.Allow, "checkpoint", err)
	logger.Write(os.Stderr)
	os.Exit(1)
}

// fatalWrongThread reports the one precondition Save/Load cannot recover
// from by quiescing around it: both must run on the checkpoint thread
// itself, since that is the one goroutine SuspendAll never tries to
// suspend. Calling either from any other goroutine would have that
// goroutine wait on its own quiesce point, a deadlock rather than a
// recoverable error.
func fatalWrongThread(op string) {
	err := errors.Errorf(errors.WrongCheckpointThread, op)
	logger.Log(logger.Allow, "checkpoint", err)
	panic(err)
}
