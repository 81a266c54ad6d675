// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package rp2040 builds the concrete platform.Info for the original
// firmware's reference target, a Raspberry Pi Pico (RP2040/RP2350),
// grounded on hal/rp2040/hal_rp2040.c's hal_get_platform_info: SRAM at
// 0x20000000 (264KB on RP2040, 520KB on RP2350), flash at 0x10000000 with
// the loader occupying the first 16KB after boot2. Wiring the actual SPI
// peripheral, GPIO chip-select, and cache/barrier intrinsics for this
// target is left to the vendor HAL, per the specification's non-goals —
// this package only supplies the PlatformInfo and region table a vendor
// HAL's concrete sdspi.Transport and elf32.Placer would be constructed
// against.
package rp2040

import "github.com/milkmanabi/mimiboot/platform"

const (
	FlashBase = 0x10000000
	SRAMBase  = 0x20000000

	// LoaderOffset is where mimiboot itself resides in flash, after boot2.
	LoaderOffset = 0x100
	LoaderSize   = 16 * 1024
)

// SRAMSize returns the SRAM size in bytes for the given chip ID (0x2040 or
// 0x2350), matching the #ifdef TARGET_RP2350 split in hal_rp2040.c.
func SRAMSize(chipID uint32) uint32 {
	if chipID == 0x2350 {
		return 520 * 1024
	}
	return 264 * 1024
}

// Info returns the platform descriptor for an RP2040 (chipID 0x2040) or
// RP2350 (chipID 0x2350) target.
func Info(chipID uint32) platform.Info {
	name := "RP2040"
	if chipID == 0x2350 {
		name = "RP2350"
	}

	sramSize := SRAMSize(chipID)
	ram := platform.Region{
		Name:  "sram",
		Base:  SRAMBase,
		Size:  sramSize,
		Flags: platform.RegionRead | platform.RegionWrite | platform.RegionExec | platform.RegionRAM,
	}
	flash := platform.Region{
		Name:  "flash",
		Base:  FlashBase + LoaderOffset,
		Size:  LoaderSize,
		Flags: platform.RegionRead | platform.RegionExec | platform.RegionFlash,
	}

	return platform.Info{
		Name:       name,
		RAM:        ram,
		Flash:      flash,
		ClockHz:    125000000,
		BootReason: platform.BootReasonPowerOn,
		BootSource: platform.BootSourcePrimary,
		LoadRegions: []platform.Region{ram},
	}
}
