// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package handoff builds and encodes the fixed 256-byte boot-context
// descriptor passed from this bootloader to the loaded image, grounded on
// the original firmware's core/handoff.c and include/mimiboot/handoff.h.
// The wire struct is encoded with go-restruct the way the rest of this
// module's on-disk and in-memory structures are, and the header CRC32 is
// computed with the standard library's hash/crc32 against crc32.IEEETable
// — the exact reflected polynomial, 0xFFFFFFFF init, and final-XOR
// reduction the original's hand-rolled mimi_crc32 implements, so no
// third-party CRC library earns a place here (see DESIGN.md).
package handoff

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/go-restruct/restruct"

	"github.com/milkmanabi/mimiboot/elf32"
	"github.com/milkmanabi/mimiboot/mimierr"
	"github.com/milkmanabi/mimiboot/platform"
)

const (
	// Magic is the fixed identification value written to Descriptor.Magic.
	Magic = 0x494D494D
	// Version is the current handoff structure version.
	Version = 1
	// Size is the fixed, wire-exact size of an encoded Descriptor.
	Size = 256

	maxRegions = 8
)

// Region flag bits, matching MIMI_REGION_* in handoff.h.
const (
	RegionFlagRAM     = 1 << 0
	RegionFlagFlash   = 1 << 1
	RegionFlagPayload = 1 << 2
	RegionFlagLoader  = 1 << 3
)

// ImageInfo is the 48-byte image-identification block of the descriptor.
type ImageInfo struct {
	Entry    uint32
	LoadBase uint32
	LoadSize uint32
	CRC32    uint32
	Name     [32]byte
}

// Region is a single 16-byte memory region descriptor entry.
type Region struct {
	Base     uint32
	Size     uint32
	Flags    uint32
	Reserved uint32
}

// Descriptor is the full 256-byte handoff structure, field order matching
// handoff.h's mimi_handoff_t exactly.
type Descriptor struct {
	Magic       uint32
	Version     uint32
	StructSize  uint32
	HeaderCRC32 uint32

	BootReason uint32
	BootSource uint32
	BootCount  uint32
	BootFlags  uint32

	ClockHz      uint32
	BootTimeUS   uint32
	LoaderTimeUS uint32
	_            uint32 // reserved_timing

	RAMBase    uint32
	RAMSize    uint32
	FlashBase  uint32
	FlashSize  uint32

	Image ImageInfo

	RegionCount uint32
	_           uint32 // reserved_regions
	Regions     [maxRegions]Region

	_ [reservedTailSize]byte
}

// reservedTailSize pads Descriptor out to exactly Size bytes: 16 (header)
// + 16 (boot context) + 16 (timing) + 16 (memory layout) + 48 (image info)
// + 8 (region count + reserved) + maxRegions*16 (region table) = 248,
// leaving 8 bytes of reserved tail, matching the wire layout exactly.
const reservedTailSize = Size - 16 - 16 - 16 - 16 - 48 - 8 - maxRegions*16

// Build assembles a Descriptor from the platform info, load result, and
// selected image name, mirroring mimi_handoff_build: it fills
// identification, boot context, memory layout, and image info, then
// appends a RAM+PAYLOAD region and a FLASH+LOADER region. BootTimeUS and
// LoaderTimeUS are left at the values passed in — mirroring the original's
// temporary double-write at build time — and the caller (package boot)
// overwrites both with their final, distinctly scoped values before the
// descriptor is encoded, per the resolution recorded in DESIGN.md.
func Build(p platform.Info, result *elf32.LoadResult, imageName string, bootCount uint32, elapsedUS uint32) *Descriptor {
	d := &Descriptor{
		Magic:      Magic,
		Version:    Version,
		StructSize: Size,

		BootReason: uint32(p.BootReason),
		BootSource: uint32(p.BootSource),
		BootCount:  bootCount,

		ClockHz:      p.ClockHz,
		BootTimeUS:   elapsedUS,
		LoaderTimeUS: elapsedUS,

		RAMBase:   p.RAM.Base,
		RAMSize:   p.RAM.Size,
		FlashBase: p.Flash.Base,
		FlashSize: p.Flash.Size,

		Image: ImageInfo{
			Entry:    result.Entry,
			LoadBase: result.LoadBase,
			LoadSize: result.LoadSize,
		},
	}
	copy(d.Image.Name[:], imageName)

	d.Regions[0] = Region{Base: result.LoadBase, Size: result.LoadSize, Flags: RegionFlagRAM | RegionFlagPayload}
	d.Regions[1] = Region{Base: p.Flash.Base, Size: p.Flash.Size, Flags: RegionFlagFlash | RegionFlagLoader}
	d.RegionCount = 2

	return d
}

// Encode serializes d into a 256-byte little-endian buffer with
// HeaderCRC32 computed and filled in, matching mimi_handoff_build's
// CRC-last-step ordering.
func Encode(d *Descriptor) ([]byte, error) {
	d.HeaderCRC32 = 0
	raw, err := restruct.Pack(binary.LittleEndian, d)
	if err != nil {
		return nil, mimierr.New(mimierr.KindHandoff, err, "encode descriptor")
	}
	if len(raw) != Size {
		return nil, mimierr.New(mimierr.KindHandoff, nil, "encoded descriptor size mismatch")
	}
	d.HeaderCRC32 = CRC32Header(raw)
	binary.LittleEndian.PutUint32(raw[12:16], d.HeaderCRC32)
	return raw, nil
}

// CRC32Header computes the CRC32 (IEEE, reflected, init 0xFFFFFFFF, final
// XOR) over the first 16 bytes of an encoded descriptor with the
// header_crc field (bytes 12..16) treated as zero, matching mimi_crc32's
// invocation in mimi_handoff_build exactly.
func CRC32Header(encoded []byte) uint32 {
	header := make([]byte, 16)
	copy(header, encoded[:16])
	header[12], header[13], header[14], header[15] = 0, 0, 0, 0
	return crc32.ChecksumIEEE(header)
}

// Decode parses a raw 256-byte buffer into a Descriptor and verifies its
// magic, size, and header CRC32.
func Decode(raw []byte) (*Descriptor, error) {
	if len(raw) != Size {
		return nil, mimierr.New(mimierr.KindHandoff, nil, "wrong descriptor size")
	}
	var d Descriptor
	if err := restruct.Unpack(raw, binary.LittleEndian, &d); err != nil {
		return nil, mimierr.New(mimierr.KindHandoff, err, "decode descriptor")
	}
	if d.Magic != Magic {
		return nil, mimierr.New(mimierr.KindHandoff, nil, "bad magic")
	}
	gotCRC := d.HeaderCRC32
	if wantCRC := CRC32Header(raw); gotCRC != wantCRC {
		return nil, mimierr.New(mimierr.KindHandoff, nil, "header CRC mismatch")
	}
	return &d, nil
}

// ImageCRC32 returns the IEEE CRC32 of the concatenation of segments (the
// bytes placed in RAM for each loaded segment, not a re-read of storage).
// Nothing in this module calls it: Build leaves Image.CRC32 at 0, whether
// or not bootcfg.Config.Verify is set.
func ImageCRC32(segments [][]byte) uint32 {
	var buf bytes.Buffer
	for _, s := range segments {
		buf.Write(s)
	}
	return crc32.ChecksumIEEE(buf.Bytes())
}
