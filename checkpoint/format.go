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
	"bufio"
	"encoding/binary"
	"io"

	"github.com/jsle-tas/tascore/errors"
)

const (
	formatVersion = 1

	// resumeTokenSize is the fixed-width blob reserved for the checkpoint
	// thread's saved resume token: a serialized registry handle (a
	// suspended goroutine's own Go stack is the resume point, so there is
	// no register file to save here). 512 bytes leaves headroom for the
	// token to grow without a format version bump.
	resumeTokenSize = 512
)

var magic = [8]byte{'T', 'A', 'S', 'C', 'O', 'R', 'E', 0x01}

// writeSnapshot writes a full snapshot: header, resume token, and region
// records, in that order.
func writeSnapshot(w io.Writer, resumeToken [resumeTokenSize]byte, regions []Region) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(magic[:]); err != nil {
		return errors.Errorf(errors.RegionMapFailed, "header", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(formatVersion)); err != nil {
		return errors.Errorf(errors.RegionMapFailed, "header", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(regions))); err != nil {
		return errors.Errorf(errors.RegionMapFailed, "header", err)
	}
	if _, err := bw.Write(resumeToken[:]); err != nil {
		return errors.Errorf(errors.RegionMapFailed, "header", err)
	}

	for _, r := range regions {
		if err := writeRegion(bw, r); err != nil {
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		return errors.Errorf(errors.RegionMapFailed, "flush", err)
	}
	return nil
}

func writeRegion(w io.Writer, r Region) error {
	fields := []any{r.Start, r.End, r.Prot, r.Flags, uint16(len(r.Name))}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return errors.Errorf(errors.RegionCopyFailed, r.Name, err)
		}
	}
	if _, err := w.Write([]byte(r.Name)); err != nil {
		return errors.Errorf(errors.RegionCopyFailed, r.Name, err)
	}
	if err := binary.Write(w, binary.LittleEndian, r.BackingOffset); err != nil {
		return errors.Errorf(errors.RegionCopyFailed, r.Name, err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(r.Kind)); err != nil {
		return errors.Errorf(errors.RegionCopyFailed, r.Name, err)
	}
	if r.Kind == PayloadRaw {
		if uint64(len(r.Payload)) != r.End-r.Start {
			return errors.Errorf(errors.RegionCopyFailed, r.Name, "payload length does not match region size")
		}
		if _, err := w.Write(r.Payload); err != nil {
			return errors.Errorf(errors.RegionCopyFailed, r.Name, err)
		}
	}
	return nil
}

// snapshotHeader is everything readSnapshot parses ahead of the region
// records.
type snapshotHeader struct {
	Version     uint32
	RegionCount uint64
	ResumeToken [resumeTokenSize]byte
}

// readSnapshot reads a full snapshot back into a header and its regions.
func readSnapshot(r io.Reader) (snapshotHeader, []Region, error) {
	var hdr snapshotHeader
	br := bufio.NewReader(r)

	var gotMagic [8]byte
	if _, err := io.ReadFull(br, gotMagic[:]); err != nil {
		return hdr, nil, errors.Errorf(errors.SnapshotTruncated, err)
	}
	if gotMagic != magic {
		return hdr, nil, errors.Errorf(errors.SnapshotBadMagic, gotMagic)
	}
	if err := binary.Read(br, binary.LittleEndian, &hdr.Version); err != nil {
		return hdr, nil, errors.Errorf(errors.SnapshotTruncated, err)
	}
	if hdr.Version != formatVersion {
		return hdr, nil, errors.Errorf(errors.SnapshotVersionSkew, hdr.Version, formatVersion)
	}
	if err := binary.Read(br, binary.LittleEndian, &hdr.RegionCount); err != nil {
		return hdr, nil, errors.Errorf(errors.SnapshotTruncated, err)
	}
	if _, err := io.ReadFull(br, hdr.ResumeToken[:]); err != nil {
		return hdr, nil, errors.Errorf(errors.SnapshotTruncated, err)
	}

	regions := make([]Region, 0, hdr.RegionCount)
	for i := uint64(0); i < hdr.RegionCount; i++ {
		region, err := readRegion(br)
		if err != nil {
			return hdr, nil, err
		}
		regions = append(regions, region)
	}
	return hdr, regions, nil
}

func readRegion(r io.Reader) (Region, error) {
	var region Region
	var nameLen uint16

	for _, f := range []any{&region.Start, &region.End, &region.Prot, &region.Flags, &nameLen} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return region, errors.Errorf(errors.SnapshotTruncated, err)
		}
	}

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return region, errors.Errorf(errors.SnapshotTruncated, err)
	}
	region.Name = string(name)

	if err := binary.Read(r, binary.LittleEndian, &region.BackingOffset); err != nil {
		return region, errors.Errorf(errors.SnapshotTruncated, err)
	}

	var kind uint8
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return region, errors.Errorf(errors.SnapshotTruncated, err)
	}
	region.Kind = PayloadKind(kind)

	if region.Kind == PayloadRaw {
		if region.End < region.Start {
			return region, errors.Errorf(errors.SnapshotTruncated, "region end before start")
		}
		payload := make([]byte, region.End-region.Start)
		if _, err := io.ReadFull(r, payload); err != nil {
			return region, errors.Errorf(errors.SnapshotTruncated, err)
		}
		region.Payload = payload
	}

	return region, nil
}
