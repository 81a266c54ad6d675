// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !arm

package arch

// Sim is a host-side Transferer used by tests and board/qemu: it records
// the parameters of the requested transfer instead of performing one, so
// the Thumb bit and the handoff pointer passed can be checked without ever
// executing target code. It does not model interrupt masking or barriers.
type Sim struct {
	Called      bool
	Entry       uint32
	SP          uint32
	HandoffAddr uint32
}

// Transfer records the call. It returns, unlike a real hardware Transfer,
// so host-side orchestration tests can assert on the recorded fields.
func (s *Sim) Transfer(entry uint32, sp uint32, handoffAddr uint32) {
	s.Called = true
	s.Entry = entry | 1
	s.SP = sp
	s.HandoffAddr = handoffAddr
}
