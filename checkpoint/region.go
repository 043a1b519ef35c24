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

// Package checkpoint serializes and restores a deliberately-scoped set of
// memory arenas, using the thread registry to quiesce every goroutine
// around the read or write. There is no safe handle to "the whole process
// address space" in a memory-managed runtime, so unlike a native
// checkpointer this package only ever touches arenas a caller explicitly
// registered with it.
package checkpoint

// RegionPolicy selects which registered arenas a Save includes. An arena
// excluded by policy must be reconstructable without its saved bytes (it
// is not registered as mutable, or the caller accepts re-deriving its
// contents), since Load never writes payload for an excluded region.
type RegionPolicy uint32

const (
	// IgnoreNonWritable excludes arenas registered as not writable.
	IgnoreNonWritable RegionPolicy = 1 << iota
	// IgnoreNonWritableNonAnonymous excludes non-writable arenas backed by
	// a named mapping rather than anonymous memory. Every arena this
	// package creates is anonymous, so this bit is a no-op today; it is
	// kept so a future file-backed arena type can opt into the same
	// filtering logic without a format change.
	IgnoreNonWritableNonAnonymous
	// IgnoreExec excludes arenas registered as executable.
	IgnoreExec
	// IgnoreShared excludes arenas registered as shared-mapped.
	IgnoreShared
)

// PayloadKind tags how a region record's bytes (if any) should be
// interpreted on restore.
type PayloadKind uint8

const (
	// PayloadRaw means the record carries the region's literal bytes.
	PayloadRaw PayloadKind = iota
	// PayloadZeroFill means the region was excluded by policy and should
	// be left as the arena's current (already zeroed, for a fresh
	// mapping) contents rather than overwritten.
	PayloadZeroFill
	// PayloadFileBacked means the region was excluded by policy because
	// its contents are reconstructable from BackingName/BackingOffset
	// rather than needing to be stored.
	PayloadFileBacked
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadRaw:
		return "raw"
	case PayloadZeroFill:
		return "zero-fill"
	case PayloadFileBacked:
		return "file-backed"
	default:
		return "unknown"
	}
}

// Region describes one arena's record within a snapshot.
type Region struct {
	Name          string
	Start, End    uint64
	Prot          uint32
	Flags         uint32
	BackingName   string
	BackingOffset uint64
	Kind          PayloadKind
	Payload       []byte // only populated when Kind == PayloadRaw
}

func (r Region) excludedBy(policy RegionPolicy, writable, shared, exec bool) bool {
	if policy&IgnoreNonWritable != 0 && !writable {
		return true
	}
	if policy&IgnoreExec != 0 && exec {
		return true
	}
	if policy&IgnoreShared != 0 && shared {
		return true
	}
	return false
}
