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
	"sync"

	"golang.org/x/sys/unix"

	"github.com/jsle-tas/tascore/errors"
)

// Arena is a registered, mmap-backed memory region eligible for
// checkpoint/restore. An ordinary make([]byte, n) slice cannot play this
// role: the garbage collector is free to move or reclaim it, so there is
// no safe way to later overwrite "the same bytes" out from under the
// runtime. A region obtained from unix.Mmap is pinned outside the Go heap
// for as long as the Arena is open, which makes in-place restore sound.
type Arena struct {
	mu sync.RWMutex

	name     string
	mem      []byte
	writable bool
	shared   bool
	exec     bool
	closed   bool
}

// NewArena allocates an anonymous, zero-filled mmap region of size bytes
// and labels it name; registering it for snapshots is a separate
// Engine.Register call. The region is always mapped
// PROT_READ|PROT_WRITE initially; exec marks it (for policy-filtering
// purposes only, see RegionPolicy) as logically executable, and shared as
// logically shared, without changing the actual mapping flags — this
// package never needs to share an arena across processes, so MAP_PRIVATE
// is used regardless.
func NewArena(name string, size int, writable, shared, exec bool) (*Arena, error) {
	if size <= 0 {
		return nil, errors.Errorf(errors.RegionMapFailed, name, "size must be positive")
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Errorf(errors.RegionMapFailed, name, err)
	}
	return &Arena{
		name:     name,
		mem:      mem,
		writable: writable,
		shared:   shared,
		exec:     exec,
	}, nil
}

// Name returns the arena's registered name.
func (a *Arena) Name() string {
	return a.name
}

// Len returns the arena's size in bytes.
func (a *Arena) Len() int {
	return len(a.mem)
}

// Bytes exposes the arena's backing memory directly; callers holding onto
// the returned slice past Close will observe an unmapped region.
func (a *Arena) Bytes() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mem
}

// CopyFrom overwrites the arena's entire contents with payload, which must
// be exactly Len() bytes.
func (a *Arena) CopyFrom(payload []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(payload) != len(a.mem) {
		return errors.Errorf(errors.RegionCopyFailed, a.name, "size mismatch")
	}
	copy(a.mem, payload)
	return nil
}

// Protect changes the arena's actual memory protection, mirroring the
// writable/exec bits it was registered with after a load that may have
// flipped them.
func (a *Arena) Protect(prot int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := unix.Mprotect(a.mem, prot); err != nil {
		return errors.Errorf(errors.RegionMapFailed, a.name, err)
	}
	return nil
}

// Close unmaps the arena. The Arena must not be used afterward.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return unix.Munmap(a.mem)
}
