// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package platform holds the board/SoC descriptor and memory-region data
// model shared by the loader, the handoff builder, and the orchestrator —
// the Go shape of the original firmware's mimi_platform_info_t in
// hal.h, generalized the way tamago's board packages each build a concrete
// descriptor against a shared HAL contract.
package platform

// BootReason is a bitset describing why the current boot attempt occurred.
type BootReason uint32

const (
	BootReasonPowerOn BootReason = 1 << iota
	BootReasonWatchdog
	BootReasonSoftware
	BootReasonBrownout
	BootReasonDebug
)

// BootSource is a bitset describing where the boot image was sourced from.
type BootSource uint32

const (
	BootSourcePrimary BootSource = 1 << iota
	BootSourceFallback
	BootSourceRecovery
)

// RegionFlag is a bitset of attributes a memory region carries, mirroring
// MIMI_MEM_* in the original firmware's core/loader.h.
type RegionFlag uint32

const (
	RegionRead RegionFlag = 1 << iota
	RegionWrite
	RegionExec
	_ // reserved, matches the gap between 0x0004 and 0x0010 in loader.h
	RegionRAM
	RegionFlash
)

// Region describes a span of addressable memory the loader is allowed to
// place segments into, mirroring the "Memory region" concept of the
// distilled specification.
type Region struct {
	Name  string
	Base  uint32
	Size  uint32
	Flags RegionFlag
}

// HasFlags reports whether r carries every bit set in want, matching
// mimi_addr_valid's region->flags & required == required check.
func (r Region) HasFlags(want RegionFlag) bool {
	return r.Flags&want == want
}

// Contains reports whether [addr, addr+size) lies entirely within r,
// guarding against the 32-bit wraparound the same way
// mimi_addr_in_region/mimi_addr_valid do in the original loader.
func (r Region) Contains(addr, size uint32) bool {
	if size == 0 {
		return addr >= r.Base && addr <= r.Base+r.Size
	}
	end := addr + size
	if end < addr {
		// overflow
		return false
	}
	return addr >= r.Base && end <= r.Base+r.Size
}

// End returns the exclusive end address of the region.
func (r Region) End() uint32 {
	return r.Base + r.Size
}

// PersistentCounter is the optional HAL contract for a boot-attempt counter
// that survives a power cycle (e.g. a backup-domain register or a reserved
// flash page). When a board does not supply one, Orchestrator keeps the
// counter in RAM for the duration of a single power cycle; see DESIGN.md for
// the resolution of this Open Question.
type PersistentCounter interface {
	Load() (uint32, error)
	Store(uint32) error
}

// Info describes the concrete board/SoC the bootloader is running on. A
// board package (board/qemu, board/rp2040) builds one of these concretely,
// the way tamago's board packages wire a PlatformInfo-shaped descriptor
// against imx6/bcm2835.
type Info struct {
	// Name is surfaced in the orchestrator's verbose boot banner, matching
	// main.c's startup banner (a field the distillation's data model
	// dropped but the original source carries as platform_name).
	Name string

	RAM   Region
	Flash Region

	ClockHz uint32

	BootReason BootReason
	BootSource BootSource

	// Counter is nil on boards with no persistent storage for the
	// boot-attempt counter; Orchestrator falls back to an intra-attempt,
	// RAM-only counter in that case.
	Counter PersistentCounter

	// LoadRegions lists the memory regions the ELF32 loader is permitted to
	// place segments into, in preference order.
	LoadRegions []Region
}
