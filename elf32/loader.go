// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package elf32

import (
	"bytes"

	"github.com/milkmanabi/mimiboot/mimierr"
	"github.com/milkmanabi/mimiboot/platform"
)

// Placer is the memory-write contract the loader copies segment bytes
// through — a board wires this against the RAM it owns directly (e.g. an
// unsafe.Pointer-backed slice over the target address range). Tests use an
// in-memory fake.
type Placer interface {
	WriteAt(addr uint32, data []byte) error
	// Zero fills size bytes starting at addr with zero, used for BSS.
	Zero(addr uint32, size uint32) error
	// ReadAt is used only by the optional verify pass.
	ReadAt(addr uint32, size uint32) ([]byte, error)
}

// Options controls optional loader behavior.
type Options struct {
	// Verify re-reads and compares each segment's FileSz bytes after
	// copying, matching the original's optional verify pass — the BSS
	// tail is never compared, since it is never read from storage.
	Verify bool
}

// Load validates the ELF image in r, checks every LOAD segment against
// regions and against each other, and — only if every segment passes —
// copies segment bytes through dst. This mirrors mimi_elf_load's two-pass
// validate-then-place contract exactly: pass 1 builds segInfo without
// touching dst, pass 2 performs the actual copy only after pass 1 succeeds
// in full, so a bad segment never leaves a partially loaded image behind.
func Load(r Reader, dst Placer, regions []platform.Region, opts Options) (*LoadResult, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if err := validateHeader(h); err != nil {
		return nil, err
	}

	phs, err := readProgramHeaders(r, h)
	if err != nil {
		return nil, err
	}

	segs := make([]segmentInfo, 0, maxSegments)
	for _, ph := range phs {
		if ph.Type != ptLoad {
			continue
		}
		if len(segs) >= maxSegments {
			return nil, mimierr.New(mimierr.KindNoMemory, nil, "too many LOAD segments")
		}
		if ph.MemSz < ph.FileSz {
			return nil, mimierr.New(mimierr.KindImageInvalid, nil, "segment filesz exceeds memsz")
		}

		region, ok := regionFor(regions, ph.VAddr, ph.MemSz)
		if !ok || !region.HasFlags(platform.RegionWrite|platform.RegionRAM) {
			return nil, mimierr.New(mimierr.KindNoMemory, nil, "segment outside any writable RAM region")
		}

		for _, other := range segs {
			if rangesOverlap(ph.VAddr, ph.MemSz, other.memAddr, other.memSize) {
				return nil, mimierr.New(mimierr.KindNoMemory, nil, "overlapping segments")
			}
		}

		segs = append(segs, segmentInfo{
			fileOffset: ph.Offset,
			fileSize:   ph.FileSz,
			memAddr:    ph.VAddr,
			memSize:    ph.MemSz,
			executable: ph.Flags&pfExec != 0,
		})
	}

	if len(segs) == 0 {
		return nil, mimierr.New(mimierr.KindImageInvalid, nil, "no LOAD segments")
	}

	loadBase := segs[0].memAddr
	loadEnd := segs[0].memAddr + segs[0].memSize
	anyExec := false

	buf := make([]byte, loadBufferSize)
	for _, seg := range segs {
		if seg.memAddr < loadBase {
			loadBase = seg.memAddr
		}
		if end := seg.memAddr + seg.memSize; end > loadEnd {
			loadEnd = end
		}
		if seg.executable {
			anyExec = true
		}

		if err := copySegment(r, dst, seg, buf); err != nil {
			return nil, err
		}

		if opts.Verify && seg.fileSize > 0 {
			if err := verifySegment(r, dst, seg, buf); err != nil {
				return nil, err
			}
		}
	}

	if h.Entry < loadBase || h.Entry >= loadEnd {
		return nil, mimierr.New(mimierr.KindImageInvalid, nil, "entry point lies outside the loaded image")
	}

	result := &LoadResult{
		Entry:    h.Entry,
		LoadBase: loadBase,
		LoadSize: loadEnd - loadBase,
	}
	if !anyExec {
		result.Warnings = append(result.Warnings, Warning("no loaded segment is marked executable"))
	}

	return result, nil
}

func regionFor(regions []platform.Region, addr, size uint32) (platform.Region, bool) {
	for _, r := range regions {
		if r.Contains(addr, size) {
			return r, true
		}
	}
	return platform.Region{}, false
}

// copySegment copies seg.fileSize bytes from the file into dst in
// loadBufferSize-sized chunks, then zeroes the BSS tail (memSize -
// fileSize bytes), mirroring mimi_load_segment.
func copySegment(r Reader, dst Placer, seg segmentInfo, buf []byte) error {
	if err := r.Seek(seg.fileOffset); err != nil {
		return mimierr.New(mimierr.KindLoadFailed, err, "seek to segment")
	}

	remaining := seg.fileSize
	addr := seg.memAddr
	for remaining > 0 {
		chunk := uint32(len(buf))
		if chunk > remaining {
			chunk = remaining
		}
		n, err := r.Read(buf[:chunk])
		if err != nil {
			return mimierr.New(mimierr.KindLoadFailed, err, "read segment data")
		}
		if uint32(n) != chunk {
			return mimierr.New(mimierr.KindLoadFailed, nil, "short read in segment")
		}
		if err := dst.WriteAt(addr, buf[:chunk]); err != nil {
			return mimierr.New(mimierr.KindLoadFailed, err, "write segment data")
		}
		addr += chunk
		remaining -= chunk
	}

	if bssSize := seg.memSize - seg.fileSize; bssSize > 0 {
		if err := dst.Zero(addr, bssSize); err != nil {
			return mimierr.New(mimierr.KindLoadFailed, err, "zero bss")
		}
	}
	return nil
}

// verifySegment re-reads the segment's FileSz bytes from both the file and
// the placed memory and compares them, matching the original's verify
// pass — the BSS tail is a pure function of zero_bss and is never compared.
func verifySegment(r Reader, dst Placer, seg segmentInfo, buf []byte) error {
	if err := r.Seek(seg.fileOffset); err != nil {
		return mimierr.New(mimierr.KindLoadFailed, err, "seek for verify")
	}
	remaining := seg.fileSize
	addr := seg.memAddr
	for remaining > 0 {
		chunk := uint32(len(buf))
		if chunk > remaining {
			chunk = remaining
		}
		n, err := r.Read(buf[:chunk])
		if err != nil || uint32(n) != chunk {
			return mimierr.New(mimierr.KindLoadFailed, err, "re-read segment data")
		}
		placed, err := dst.ReadAt(addr, chunk)
		if err != nil {
			return mimierr.New(mimierr.KindLoadFailed, err, "read back placed data")
		}
		if !bytes.Equal(buf[:chunk], placed) {
			return mimierr.New(mimierr.KindLoadFailed, nil, "verify mismatch")
		}
		addr += chunk
		remaining -= chunk
	}
	return nil
}
