// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package boot_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/milkmanabi/mimiboot/arch"
	"github.com/milkmanabi/mimiboot/boot"
	"github.com/milkmanabi/mimiboot/mimierr"
	"github.com/milkmanabi/mimiboot/platform"
)

const sectorSize = 512

// fakeBoard is a minimal, hand-built FAT32 image plus a RAM placer, wired
// together the way a real board/* package wires sdspi.Card, a RAM window,
// and arch.ARM — but entirely in memory, for host-side scenario tests.
type fakeBoard struct {
	sectors []byte
}

func (f *fakeBoard) Init() error   { return nil }
func (f *fakeBoard) Detect() error { return nil }
func (f *fakeBoard) ReadBlocks(lba uint32, count int, buf []byte) error {
	off := int(lba) * sectorSize
	copy(buf, f.sectors[off:off+count*sectorSize])
	return nil
}

type fakePlacer struct {
	base uint32
	mem  []byte
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

type fakeLogger struct{}

func (fakeLogger) Debugf(string, ...interface{}) {}
func (fakeLogger) Infof(string, ...interface{})  {}
func (fakeLogger) Errorf(string, ...interface{}) {}

type fakeClock struct{ t uint64 }

func (c *fakeClock) NowMicros() uint64 { c.t += 100; return c.t }

func buildELF(entry, loadAddr, fileSize, memSize uint32, payload []byte) []byte {
	const headerSize = 52
	const phSize = 32
	buf := make([]byte, headerSize+phSize+len(payload))
	buf[0], buf[1], buf[2], buf[3] = 0x7F, 'E', 'L', 'F'
	buf[4], buf[5], buf[6] = 1, 1, 1
	le := binary.LittleEndian
	le.PutUint16(buf[16:], 2)
	le.PutUint16(buf[18:], 40)
	le.PutUint32(buf[20:], 1)
	le.PutUint32(buf[24:], entry)
	le.PutUint32(buf[28:], headerSize)
	le.PutUint16(buf[40:], headerSize)
	le.PutUint16(buf[42:], phSize)
	le.PutUint16(buf[44:], 1)
	ph := buf[headerSize:]
	le.PutUint32(ph[0:], 1)
	le.PutUint32(ph[4:], headerSize+phSize)
	le.PutUint32(ph[8:], loadAddr)
	le.PutUint32(ph[12:], loadAddr)
	le.PutUint32(ph[16:], fileSize)
	le.PutUint32(ph[20:], memSize)
	le.PutUint32(ph[24:], 1)
	copy(buf[headerSize+phSize:], payload)
	return buf
}

// buildFAT32Image constructs a minimal superfloppy FAT32 image (no MBR)
// with a single root-directory file at the given short name, containing
// data. It returns the raw sector bytes.
func buildFAT32Image(shortName string, data []byte, totalSectors int) []byte {
	const reservedSectors = 32
	const fatSectors = 8
	const dataStart = reservedSectors + fatSectors

	img := make([]byte, totalSectors*sectorSize)
	le := binary.LittleEndian

	img[0] = 0xEB
	img[1] = 0x00
	img[2] = 0x90
	le.PutUint16(img[11:], sectorSize)
	img[13] = 1 // sectors per cluster
	le.PutUint16(img[14:], reservedSectors)
	img[16] = 1 // num FATs
	le.PutUint32(img[32:], uint32(totalSectors))
	le.PutUint32(img[36:], fatSectors)
	le.PutUint32(img[44:], 2) // root cluster
	img[510], img[511] = 0x55, 0xAA

	fatOff := reservedSectors * sectorSize
	le.PutUint32(img[fatOff+0:], 0x0FFFFFF8)
	le.PutUint32(img[fatOff+4:], 0x0FFFFFFF)
	le.PutUint32(img[fatOff+8:], 0x0FFFFFF8) // cluster 2 (root) EOC
	le.PutUint32(img[fatOff+12:], 0x0FFFFFFF) // cluster 3 (file) EOC

	rootOff := dataStart * sectorSize
	var name [11]byte
	copy(name[:], shortName)
	copy(img[rootOff:rootOff+11], name[:])
	img[rootOff+11] = 0x20 // ARCHIVE
	le.PutUint16(img[rootOff+20:], 0)      // ClusterHi
	le.PutUint16(img[rootOff+26:], 3)      // ClusterLo
	le.PutUint32(img[rootOff+28:], uint32(len(data)))

	fileOff := (dataStart + 1) * sectorSize
	copy(img[fileOff:], data)

	return img
}

func shortName83(base, ext string) string {
	for len(base) < 8 {
		base += " "
	}
	return base + ext
}

func testPlatform() platform.Info {
	ram := platform.Region{
		Name:  "ram",
		Base:  0x10000000,
		Size:  4096,
		Flags: platform.RegionRead | platform.RegionWrite | platform.RegionExec | platform.RegionRAM,
	}
	return platform.Info{
		Name:        "test-board",
		RAM:         ram,
		LoadRegions: []platform.Region{ram},
	}
}

func TestOrchestratorSuccessfulBoot(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	elfImage := buildELF(0x10000000, 0x10000000, uint32(len(payload)), uint32(len(payload)), payload)
	img := buildFAT32Image(shortName83("KERNEL", "BIN"), elfImage, 64)

	board := &fakeBoard{sectors: img}
	placer := &fakePlacer{base: 0x10000000, mem: make([]byte, 4096)}
	sim := &arch.Sim{}

	o := boot.New(testPlatform(), board, placer, sim, &fakeClock{}, fakeLogger{})
	err := o.Run()

	require.NoError(t, err)
	require.True(t, sim.Called)
	require.Equal(t, uint32(0x10000001), sim.Entry)
}

func TestOrchestratorMissingImageReturnsFileNotFound(t *testing.T) {
	img := buildFAT32Image(shortName83("OTHER", "BIN"), []byte{1, 2, 3}, 64)

	board := &fakeBoard{sectors: img}
	placer := &fakePlacer{base: 0x10000000, mem: make([]byte, 4096)}
	sim := &arch.Sim{}

	o := boot.New(testPlatform(), board, placer, sim, &fakeClock{}, fakeLogger{})
	err := o.Run()

	require.Error(t, err)
	require.False(t, sim.Called)
	kind, ok := mimierr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, mimierr.KindFileNotFound, kind)
	require.Equal(t, boot.BlinkFileNotFound, boot.BlinkCodeForError(err))
}

func TestOrchestratorInvalidELFReturnsImageInvalid(t *testing.T) {
	garbage := []byte{0x00, 0x01, 0x02, 0x03}
	img := buildFAT32Image(shortName83("KERNEL", "BIN"), garbage, 64)

	board := &fakeBoard{sectors: img}
	placer := &fakePlacer{base: 0x10000000, mem: make([]byte, 4096)}
	sim := &arch.Sim{}

	o := boot.New(testPlatform(), board, placer, sim, &fakeClock{}, fakeLogger{})
	err := o.Run()

	require.Error(t, err)
	kind, ok := mimierr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, mimierr.KindImageInvalid, kind)
}

func TestBlinkCodeDefaultsForUnknownKind(t *testing.T) {
	require.Equal(t, boot.BlinkInitFail, boot.BlinkCode(mimierr.Kind(99)))
}
