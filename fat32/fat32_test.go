// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fat32

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseShortName(t *testing.T) {
	cases := []struct {
		raw  [11]byte
		want string
	}{
		{[11]byte{'K', 'E', 'R', 'N', 'E', 'L', ' ', ' ', 'B', 'I', 'N'}, "KERNEL.BIN"},
		{[11]byte{'B', 'O', 'O', 'T', ' ', ' ', ' ', ' ', 'C', 'F', 'G'}, "BOOT.CFG"},
		{[11]byte{'R', 'E', 'A', 'D', 'M', 'E', ' ', ' ', ' ', ' ', ' '}, "README"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, parseShortName(c.raw))
	}
}

func TestDecodeLFNFragmentStopsAtTerminator(t *testing.T) {
	l := lfnDirEntry{
		Name1: [5]uint16{'f', 'i', 'r', 'm', 'w'},
		Name2: [6]uint16{'a', 'r', 'e', 0x0000, 0xFFFF, 0xFFFF},
		Name3: [2]uint16{0xFFFF, 0xFFFF},
	}
	require.Equal(t, "firmware", decodeLFNFragment(l))
}

func TestIsEOC(t *testing.T) {
	require.True(t, isEOC(0x0FFFFFFF))
	require.True(t, isEOC(0x0FFFFFF8))
	require.False(t, isEOC(0x00000005))
}

// memDevice is an in-memory SectorReader over a byte slice of sectors. No
// test in this file uses it.
type memDevice struct {
	sectors []byte
}

func (m *memDevice) ReadBlocks(lba uint32, count int, buf []byte) error {
	off := int(lba) * sectorSize
	copy(buf, m.sectors[off:off+count*sectorSize])
	return nil
}

func TestVolumeContainsClusterArithmetic(t *testing.T) {
	v := &Volume{
		bytesPerSec: 512,
		secPerClus:  1,
		dataStart:   100,
		clusterSize: 512,
	}
	require.Equal(t, uint32(100), v.clusterToSector(2))
	require.Equal(t, uint32(101), v.clusterToSector(3))
}
