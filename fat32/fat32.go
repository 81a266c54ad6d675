// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package fat32 implements read-only FAT32 volume mounting, path
// resolution with long-filename reassembly, and a file byte-cursor,
// grounded on the original firmware's fs/fat32.c. Where the original
// hand-rolls byte offsets into the boot parameter block and directory
// entries, this package decodes them with go-restruct-tagged structs, the
// way dsoprea/go-exfat decodes its own boot sector header — the one place
// this rendition deliberately changes mechanism, not semantics.
package fat32

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"

	"github.com/milkmanabi/mimiboot/mimierr"
)

// SectorReader is the block-storage contract fat32 is built against. A
// *sdspi.Card satisfies it directly.
type SectorReader interface {
	ReadBlocks(lba uint32, count int, buf []byte) error
}

const (
	sectorSize      = 512
	dirEntrySize    = 32
	fatEntriesEOC   = 0x0FFFFFF8
	fatEntryMask    = 0x0FFFFFFF
	attrLongName    = 0x0F
	attrDirectory   = 0x10
	attrVolumeID    = 0x08
)

// bpb is the BIOS Parameter Block fields fat32 needs, decoded from offset
// 0x0B of the volume's boot sector via go-restruct, mirroring the field set
// read by hand in fat32_mount.
type bpb struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	_                 [5]byte // RootEntCnt..Media, unused by FAT32
	SectorsPerFAT16   uint16
	_                 [8]byte // SecPerTrk, NumHeads, HiddSec
	TotalSectors32    uint32
	SectorsPerFAT32   uint32
	_                 [4]byte // ExtFlags, FSVer
	RootCluster       uint32
}

// Volume is a mounted, read-only FAT32 filesystem.
type Volume struct {
	dev SectorReader

	partitionLBA uint32
	bytesPerSec  uint16
	secPerClus   uint8
	fatStart     uint32
	dataStart    uint32
	rootCluster  uint32
	clusterSize  uint32
}

// Mount reads the MBR (if present), locates a FAT32 partition (type 0x0B,
//0x0C, or a superfloppy image with the BPB at LBA 0), parses its BPB, and
// returns a mounted Volume. Mirrors fat32_mount exactly.
func Mount(dev SectorReader) (*Volume, error) {
	sector := make([]byte, sectorSize)
	if err := dev.ReadBlocks(0, 1, sector); err != nil {
		return nil, mimierr.New(mimierr.KindFilesystem, err, "read sector 0")
	}

	partitionLBA := uint32(0)
	if sector[510] == 0x55 && sector[511] == 0xAA {
		// Might be an MBR: scan the four partition entries for a FAT32 type.
		for i := 0; i < 4; i++ {
			entry := sector[446+i*16:]
			ptype := entry[4]
			if ptype == 0x0B || ptype == 0x0C {
				partitionLBA = leU32(entry[8:12])
				if err := dev.ReadBlocks(partitionLBA, 1, sector); err != nil {
					return nil, mimierr.New(mimierr.KindFilesystem, err, "read partition boot sector")
				}
				break
			}
		}
	}

	// Superfloppy (no MBR) images carry the jump instruction directly at
	// offset 0: 0xEB or 0xE9.
	if partitionLBA == 0 && sector[0] != 0xEB && sector[0] != 0xE9 {
		return nil, mimierr.New(mimierr.KindFilesystem, nil, "no FAT32 partition found")
	}

	var b bpb
	if err := restruct.Unpack(sector[0x0B:], binary.LittleEndian, &b); err != nil {
		return nil, mimierr.New(mimierr.KindFilesystem, err, "decode BPB")
	}

	if b.BytesPerSector != sectorSize {
		return nil, mimierr.New(mimierr.KindFilesystem, nil, "unsupported bytes per sector")
	}
	if b.SectorsPerCluster == 0 || b.NumFATs == 0 || b.SectorsPerFAT32 == 0 {
		return nil, mimierr.New(mimierr.KindFilesystem, nil, "invalid BPB")
	}

	fatStart := partitionLBA + uint32(b.ReservedSectors)
	dataStart := fatStart + uint32(b.NumFATs)*b.SectorsPerFAT32

	v := &Volume{
		dev:          dev,
		partitionLBA: partitionLBA,
		bytesPerSec:  b.BytesPerSector,
		secPerClus:   b.SectorsPerCluster,
		fatStart:     fatStart,
		dataStart:    dataStart,
		rootCluster:  b.RootCluster,
		clusterSize:  uint32(b.BytesPerSector) * uint32(b.SectorsPerCluster),
	}
	return v, nil
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leU16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
