// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package qemu wires the boot orchestrator against a software-simulated
// board: a FAT32 image backed by an ordinary file instead of a real SD/SPI
// card, and a RAM window backed by a plain byte slice instead of physical
// memory. It exists for host-side development, CI, and
// cmd/mimiboot-imgtool — the same role tamago's board packages play for
// hardware, concretely wiring a PlatformInfo and HAL contracts against one
// target, except this target is "the host running go test".
package qemu

import (
	"os"
	"time"

	"github.com/milkmanabi/mimiboot/arch"
	"github.com/milkmanabi/mimiboot/mimierr"
	"github.com/milkmanabi/mimiboot/platform"
)

const sectorSize = 512

// FileStorage implements boot.Storage by reading blocks directly out of an
// ordinary file, standing in for sdspi.Card on real hardware.
type FileStorage struct {
	f *os.File
}

// OpenFileStorage opens path as a simulated block device.
func OpenFileStorage(path string) (*FileStorage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mimierr.New(mimierr.KindStorage, err, "open image file")
	}
	return &FileStorage{f: f}, nil
}

// Init is a no-op: there is no cold-start sequence for a plain file.
func (s *FileStorage) Init() error { return nil }

// Detect is a no-op: there is no card to probe.
func (s *FileStorage) Detect() error { return nil }

// ReadBlocks reads count sectorSize-byte blocks starting at lba.
func (s *FileStorage) ReadBlocks(lba uint32, count int, buf []byte) error {
	if _, err := s.f.ReadAt(buf[:count*sectorSize], int64(lba)*sectorSize); err != nil {
		return mimierr.New(mimierr.KindStorage, err, "read image file")
	}
	return nil
}

// Close releases the underlying file.
func (s *FileStorage) Close() error { return s.f.Close() }

// RAMWindow implements elf32.Placer over a plain byte slice, simulating a
// region of physical memory for host-side testing and the imgtool CLI.
type RAMWindow struct {
	Base uint32
	Mem  []byte
}

// NewRAMWindow allocates a simulated RAM window of size bytes starting at
// base.
func NewRAMWindow(base uint32, size uint32) *RAMWindow {
	return &RAMWindow{Base: base, Mem: make([]byte, size)}
}

func (w *RAMWindow) WriteAt(addr uint32, data []byte) error {
	if addr < w.Base || addr-w.Base+uint32(len(data)) > uint32(len(w.Mem)) {
		return mimierr.New(mimierr.KindLoadFailed, nil, "write outside RAM window")
	}
	copy(w.Mem[addr-w.Base:], data)
	return nil
}

func (w *RAMWindow) Zero(addr uint32, size uint32) error {
	if addr < w.Base || addr-w.Base+size > uint32(len(w.Mem)) {
		return mimierr.New(mimierr.KindLoadFailed, nil, "zero outside RAM window")
	}
	for i := uint32(0); i < size; i++ {
		w.Mem[addr-w.Base+i] = 0
	}
	return nil
}

func (w *RAMWindow) ReadAt(addr uint32, size uint32) ([]byte, error) {
	if addr < w.Base || addr-w.Base+size > uint32(len(w.Mem)) {
		return nil, mimierr.New(mimierr.KindLoadFailed, nil, "read outside RAM window")
	}
	return w.Mem[addr-w.Base : addr-w.Base+size], nil
}

// WallClock supplies microsecond timestamps from the host's monotonic
// clock, standing in for a hardware timer peripheral.
type WallClock struct {
	start time.Time
}

// NewWallClock returns a WallClock zeroed at the current instant.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// NowMicros returns microseconds elapsed since the clock was created.
func (c *WallClock) NowMicros() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}

// Info returns the simulated platform descriptor: 16MiB of RAM at
// 0x40000000 (matching QEMU virt's conventional RAM base) and a single
// load region spanning it.
func Info() platform.Info {
	ram := platform.Region{
		Name:  "ram",
		Base:  0x40000000,
		Size:  16 << 20,
		Flags: platform.RegionRead | platform.RegionWrite | platform.RegionExec | platform.RegionRAM,
	}
	flash := platform.Region{
		Name:  "flash",
		Base:  0x00000000,
		Size:  2 << 20,
		Flags: platform.RegionRead | platform.RegionExec | platform.RegionFlash,
	}
	return platform.Info{
		Name:        "qemu-virt",
		RAM:         ram,
		Flash:       flash,
		ClockHz:     62500000,
		BootReason:  platform.BootReasonPowerOn,
		BootSource:  platform.BootSourcePrimary,
		LoadRegions: []platform.Region{ram},
	}
}

// Transferer returns the simulated Transferer for this board: qemu never
// runs real ARM code transfer from the Go host process, so it uses
// arch.Sim. arch.Sim exists only in non-arm builds, so this package does
// not build for GOARCH=arm.
func Transferer() *arch.Sim {
	return &arch.Sim{}
}
