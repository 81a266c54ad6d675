// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package elf32_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/milkmanabi/mimiboot/elf32"
	"github.com/milkmanabi/mimiboot/platform"
)

// fakeReader implements elf32.Reader over an in-memory byte slice.
type fakeReader struct {
	data []byte
	pos  uint32
}

func (f *fakeReader) Seek(off uint32) error { f.pos = off; return nil }
func (f *fakeReader) Size() uint32          { return uint32(len(f.data)) }
func (f *fakeReader) Read(p []byte) (int, error) {
	n := copy(p, f.data[f.pos:])
	f.pos += uint32(n)
	return n, nil
}

// fakePlacer implements elf32.Placer over a simulated RAM window.
type fakePlacer struct {
	base uint32
	mem  []byte
}

func newFakePlacer(base uint32, size uint32) *fakePlacer {
	return &fakePlacer{base: base, mem: make([]byte, size)}
}

func (p *fakePlacer) WriteAt(addr uint32, data []byte) error {
	copy(p.mem[addr-p.base:], data)
	return nil
}
func (p *fakePlacer) Zero(addr uint32, size uint32) error {
	for i := uint32(0); i < size; i++ {
		p.mem[addr-p.base+i] = 0
	}
	return nil
}
func (p *fakePlacer) ReadAt(addr uint32, size uint32) ([]byte, error) {
	return p.mem[addr-p.base : addr-p.base+size], nil
}

// buildELF constructs a minimal one-segment ELF32/ARM/ET_EXEC image with a
// given entry point, load address, file size, and mem size (mem size may
// exceed file size to exercise BSS zeroing).
func buildELF(entry, loadAddr, fileSize, memSize uint32, payload []byte) []byte {
	const headerSize = 52
	const phSize = 32

	buf := make([]byte, headerSize+phSize+len(payload))
	buf[0], buf[1], buf[2], buf[3] = 0x7F, 'E', 'L', 'F'
	buf[4] = 1 // ELFCLASS32
	buf[5] = 1 // little-endian
	buf[6] = 1 // EV_CURRENT

	le := binary.LittleEndian
	le.PutUint16(buf[16:], 2)  // e_type = ET_EXEC
	le.PutUint16(buf[18:], 40) // e_machine = EM_ARM
	le.PutUint32(buf[20:], 1)  // e_version
	le.PutUint32(buf[24:], entry)
	le.PutUint32(buf[28:], headerSize) // e_phoff
	le.PutUint16(buf[40:], headerSize) // e_ehsize
	le.PutUint16(buf[42:], phSize)     // e_phentsize
	le.PutUint16(buf[44:], 1)          // e_phnum

	ph := buf[headerSize:]
	le.PutUint32(ph[0:], 1) // PT_LOAD
	le.PutUint32(ph[4:], headerSize+phSize)
	le.PutUint32(ph[8:], loadAddr)
	le.PutUint32(ph[12:], loadAddr)
	le.PutUint32(ph[16:], fileSize)
	le.PutUint32(ph[20:], memSize)
	le.PutUint32(ph[24:], 1) // PF_X

	copy(buf[headerSize+phSize:], payload)
	return buf
}

func TestLoadSingleSegmentWithBSS(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	img := buildELF(0x10000000, 0x10000000, uint32(len(payload)), 16, payload)

	r := &fakeReader{data: img}
	placer := newFakePlacer(0x10000000, 64)
	regions := []platform.Region{{
		Name:  "ram",
		Base:  0x10000000,
		Size:  1 << 20,
		Flags: platform.RegionRead | platform.RegionWrite | platform.RegionExec | platform.RegionRAM,
	}}

	result, err := elf32.Load(r, placer, regions, elf32.Options{Verify: true})
	require.NoError(t, err)
	require.Equal(t, uint32(0x10000000), result.Entry)
	require.Equal(t, uint32(0x10000000), result.LoadBase)
	require.Equal(t, uint32(16), result.LoadSize)
	require.Empty(t, result.Warnings)

	require.Equal(t, payload, placer.mem[0:4])
	require.Equal(t, make([]byte, 12), placer.mem[4:16])
}

func TestLoadRejectsSegmentOutsideRegion(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	img := buildELF(0x20000000, 0x20000000, 4, 4, payload)

	r := &fakeReader{data: img}
	placer := newFakePlacer(0x10000000, 64)
	regions := []platform.Region{{Name: "ram", Base: 0x10000000, Size: 64}}

	_, err := elf32.Load(r, placer, regions, elf32.Options{})
	require.Error(t, err)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	img := buildELF(0, 0x10000000, 4, 4, []byte{1, 2, 3, 4})
	img[0] = 0x00

	r := &fakeReader{data: img}
	placer := newFakePlacer(0x10000000, 64)
	regions := []platform.Region{{Name: "ram", Base: 0x10000000, Size: 64}}

	_, err := elf32.Load(r, placer, regions, elf32.Options{})
	require.Error(t, err)
}
