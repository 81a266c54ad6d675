// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package arch implements the architecture-specific execution transfer
// (component F): disabling interrupts, issuing the memory/instruction
// barriers, optionally switching the stack pointer, and branching into the
// loaded image with the Thumb bit set as needed. It follows tamago's split
// between architecture intrinsics (bodyless Go functions backed by
// assembly, as in arm/cache.go's cache_enable/cache_flush_data) and
// architecture-neutral orchestration: Transfer itself is architecture
// neutral and calls into the low-level barrier/branch primitives declared
// per GOARCH.
//
// The control sequence mirrors the original firmware's
// mimi_handoff_jump/mimi_handoff_jump_with_sp inline assembly: cpsid i,
// optional stack pointer write, dsb, isb, OR in the Thumb bit, bx.
package arch

// Transferer performs the final, non-returning jump into a loaded image.
// A real GOARCH=arm build's Transfer never returns; transfer_sim.go's
// build provides a recording fake for host-side tests so boot's tests can
// assert a transfer was requested without ever executing one.
type Transferer interface {
	// Transfer disables interrupts, issues the barrier sequence, optionally
	// sets the stack pointer to sp (if sp is non-zero), and branches to
	// entry with the Thumb bit applied as needed. It does not return on
	// real hardware.
	Transfer(entry uint32, sp uint32, handoffAddr uint32)
}
