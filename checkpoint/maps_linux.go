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

//go:build linux

package checkpoint

import (
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/jsle-tas/tascore/errors"
)

// readSelfMaps reads and parses /proc/self/maps via raw syscalls
// (unix.Open/unix.Read) rather than os.Open, so a call made on the
// suspend-sensitive save path never goes through os.File's extra
// allocation and finalizer bookkeeping.
func readSelfMaps() ([]mapEntry, error) {
	fd, err := unix.Open("/proc/self/maps", unix.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Errorf(errors.RegionMapFailed, "/proc/self/maps", err)
	}
	defer unix.Close(fd)

	var buf []byte
	chunk := make([]byte, 64*1024)
	for {
		n, err := unix.Read(fd, chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			return nil, errors.Errorf(errors.RegionMapFailed, "/proc/self/maps", err)
		}
		if n == 0 {
			break
		}
	}

	return parseMaps(string(buf))
}

func parseMaps(content string) ([]mapEntry, error) {
	var out []mapEntry
	for _, line := range strings.Split(content, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		addrs := strings.SplitN(fields[0], "-", 2)
		if len(addrs) != 2 {
			continue
		}
		start, err := strconv.ParseUint(addrs[0], 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(addrs[1], 16, 64)
		if err != nil {
			continue
		}
		perms := fields[1]
		offset, _ := strconv.ParseUint(fields[2], 16, 64)

		entry := mapEntry{
			start:  start,
			end:    end,
			read:   strings.Contains(perms, "r"),
			write:  strings.Contains(perms, "w"),
			exec:   strings.Contains(perms, "x"),
			shared: strings.Contains(perms, "s"),
			offset: offset,
		}
		if len(fields) >= 6 {
			entry.path = fields[5]
		}
		out = append(out, entry)
	}
	return out, nil
}
