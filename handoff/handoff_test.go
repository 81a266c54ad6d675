// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package handoff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/milkmanabi/mimiboot/elf32"
	"github.com/milkmanabi/mimiboot/handoff"
	"github.com/milkmanabi/mimiboot/platform"
)

func testPlatform() platform.Info {
	return platform.Info{
		Name:       "qemu-virt",
		RAM:        platform.Region{Name: "ram", Base: 0x10000000, Size: 0x01000000},
		Flash:      platform.Region{Name: "flash", Base: 0x08000000, Size: 0x00100000},
		BootReason: platform.BootReasonPowerOn,
		BootSource: platform.BootSourcePrimary,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	result := &elf32.LoadResult{Entry: 0x10000000, LoadBase: 0x10000000, LoadSize: 4096}
	d := handoff.Build(testPlatform(), result, "kernel.bin", 1, 12345)

	raw, err := handoff.Encode(d)
	require.NoError(t, err)
	require.Len(t, raw, handoff.Size)

	decoded, err := handoff.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, uint32(handoff.Magic), decoded.Magic)
	require.Equal(t, result.Entry, decoded.Image.Entry)
	require.Equal(t, uint32(2), decoded.RegionCount)
}

func TestDecodeRejectsCorruptedCRC(t *testing.T) {
	result := &elf32.LoadResult{Entry: 0x10000000, LoadBase: 0x10000000, LoadSize: 4096}
	d := handoff.Build(testPlatform(), result, "kernel.bin", 0, 0)
	raw, err := handoff.Encode(d)
	require.NoError(t, err)

	raw[4] ^= 0xFF // corrupt a byte within the 16-byte CRC window (Version field)

	_, err = handoff.Decode(raw)
	require.Error(t, err)
}

func TestCRC32HeaderIgnoresStoredCRCField(t *testing.T) {
	result := &elf32.LoadResult{Entry: 0x1000, LoadBase: 0x1000, LoadSize: 16}
	d := handoff.Build(testPlatform(), result, "a.bin", 0, 0)
	raw, err := handoff.Encode(d)
	require.NoError(t, err)

	withGarbageCRC := append([]byte(nil), raw...)
	withGarbageCRC[12], withGarbageCRC[13], withGarbageCRC[14], withGarbageCRC[15] = 1, 2, 3, 4

	require.Equal(t, handoff.CRC32Header(raw), handoff.CRC32Header(withGarbageCRC))
}
