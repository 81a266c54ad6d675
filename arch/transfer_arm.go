// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build arm

package arch

// ARM is the hardware Transferer: Transfer disables IRQs, issues DSB/ISB,
// and branches into entry with the Thumb bit applied, matching
// mimi_handoff_jump_with_sp. The barrier and branch primitives are declared
// here with no body and implemented in transfer_arm.s, the same pattern
// arm/cache.go uses for cache_enable and friends.
type ARM struct{}

// Transfer never returns on real hardware.
func (ARM) Transfer(entry uint32, sp uint32, handoffAddr uint32) {
	disableIRQ()
	if sp != 0 {
		setStackPointer(sp)
	}
	dataBarrier()
	instructionBarrier()
	branchTo(entry|1, handoffAddr)
}

// disableIRQ is implemented in transfer_arm.s (cpsid i).
func disableIRQ()

// setStackPointer is implemented in transfer_arm.s (msr msp, r0).
func setStackPointer(sp uint32)

// dataBarrier is implemented in transfer_arm.s (dsb).
func dataBarrier()

// instructionBarrier is implemented in transfer_arm.s (isb).
func instructionBarrier()

// branchTo is implemented in transfer_arm.s: it branches through r1 to entry
// with r0 = handoff pointer, the image's first argument register.
func branchTo(entry uint32, handoffAddr uint32)
