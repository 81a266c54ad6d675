// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package elf32 implements ELF32 header/program-header validation and the
// two-pass segment loader described by the boot path's loader component,
// grounded on the original firmware's core/loader.c: validate-then-place
// semantics (all segments must pass bounds and overlap checks before any
// byte is copied), a 512-byte chunked copy, BSS zeroing, and optional
// verify-after-load.
package elf32

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"

	"github.com/milkmanabi/mimiboot/mimierr"
)

const (
	maxSegments       = 16
	maxProgramHeaders = 64
	loadBufferSize    = 512
)

const (
	etExec   = 2
	emARM    = 40
	ptLoad   = 1
	pfExec   = 1 << 0
)

// Header is the 52-byte ELF32 file header, decoded with go-restruct the
// way fat32/handoff decode their own fixed-layout structures.
type Header struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	PhOff     uint32
	ShOff     uint32
	Flags     uint32
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrNdx  uint16
}

// ProgramHeader is a single 32-byte ELF32 program header entry.
type ProgramHeader struct {
	Type    uint32
	Offset  uint32
	VAddr   uint32
	PAddr   uint32
	FileSz  uint32
	MemSz   uint32
	Flags   uint32
	Align   uint32
}

// Reader is the file contract the loader reads from; fat32.File satisfies
// it (Seek takes an absolute offset, matching fat32's cursor API).
type Reader interface {
	Read(p []byte) (int, error)
	Seek(offset uint32) error
	Size() uint32
}

// Warning is a non-fatal observation surfaced alongside a successful
// LoadResult — e.g. no loaded segment was marked executable, which the
// original comments "Warning but not error" without acting on.
type Warning string

// LoadResult describes where an ELF image ended up in memory.
type LoadResult struct {
	Entry    uint32
	LoadBase uint32
	LoadSize uint32
	Warnings []Warning
}

// segmentInfo is the pass-1 validated, not-yet-copied record of one LOAD
// segment, mirroring loader.c's seg_info[MIMI_MAX_SEGMENTS] scratch array.
type segmentInfo struct {
	fileOffset uint32
	fileSize   uint32
	memAddr    uint32
	memSize    uint32
	executable bool
}

var elfIdentMagic = [4]byte{0x7F, 'E', 'L', 'F'}

// validateHeader checks the ELF identification, class, data encoding,
// type, and machine fields in the same order mimi_elf_validate_header
// does, so the first mismatch reported matches the original's diagnostics.
func validateHeader(h *Header) error {
	if [4]byte{h.Ident[0], h.Ident[1], h.Ident[2], h.Ident[3]} != elfIdentMagic {
		return mimierr.New(mimierr.KindImageInvalid, nil, "bad ELF magic")
	}
	if h.Ident[4] != 1 {
		return mimierr.New(mimierr.KindImageInvalid, nil, "not ELFCLASS32")
	}
	if h.Ident[5] != 1 {
		return mimierr.New(mimierr.KindImageInvalid, nil, "not little-endian")
	}
	if h.Type != etExec {
		return mimierr.New(mimierr.KindImageInvalid, nil, "not ET_EXEC")
	}
	if h.Machine != emARM {
		return mimierr.New(mimierr.KindImageInvalid, nil, "not EM_ARM")
	}
	if h.PhNum == 0 || h.PhNum > maxProgramHeaders {
		return mimierr.New(mimierr.KindImageInvalid, nil, "invalid program header count")
	}
	return nil
}

func readHeader(r Reader) (*Header, error) {
	raw := make([]byte, 52)
	if err := r.Seek(0); err != nil {
		return nil, mimierr.New(mimierr.KindImageInvalid, err, "seek to header")
	}
	if _, err := r.Read(raw); err != nil {
		return nil, mimierr.New(mimierr.KindImageInvalid, err, "read header")
	}
	var h Header
	if err := restruct.Unpack(raw, binary.LittleEndian, &h); err != nil {
		return nil, mimierr.New(mimierr.KindImageInvalid, err, "decode header")
	}
	return &h, nil
}

func readProgramHeaders(r Reader, h *Header) ([]ProgramHeader, error) {
	phs := make([]ProgramHeader, h.PhNum)
	entrySize := uint32(h.PhEntSize)
	if entrySize == 0 {
		entrySize = 32
	}
	raw := make([]byte, entrySize)
	for i := uint16(0); i < h.PhNum; i++ {
		off := h.PhOff + uint32(i)*entrySize
		if err := r.Seek(off); err != nil {
			return nil, mimierr.New(mimierr.KindImageInvalid, err, "seek to program header")
		}
		if _, err := r.Read(raw); err != nil {
			return nil, mimierr.New(mimierr.KindImageInvalid, err, "read program header")
		}
		if err := restruct.Unpack(raw[:32], binary.LittleEndian, &phs[i]); err != nil {
			return nil, mimierr.New(mimierr.KindImageInvalid, err, "decode program header")
		}
	}
	return phs, nil
}

func rangesOverlap(aStart, aSize, bStart, bSize uint32) bool {
	if aSize == 0 || bSize == 0 {
		return false
	}
	return aStart < bStart+bSize && bStart < aStart+aSize
}
