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

// mapEntry is one parsed line of /proc/self/maps, used on Linux to cross
// check a registered arena's actual kernel-reported protection bits
// against what it was registered with.
type mapEntry struct {
	start, end uint64
	read       bool
	write      bool
	exec       bool
	shared     bool
	offset     uint64
	path       string
}

// contains reports whether addr falls within the entry's range.
func (e mapEntry) contains(addr uint64) bool {
	return addr >= e.start && addr < e.end
}

// findEntry returns the mapping that contains addr, if any.
func findEntry(entries []mapEntry, addr uint64) (mapEntry, bool) {
	for _, e := range entries {
		if e.contains(addr) {
			return e, true
		}
	}
	return mapEntry{}, false
}
