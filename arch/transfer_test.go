// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !arm

package arch_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/milkmanabi/mimiboot/arch"
)

func TestSimTransferAppliesThumbBit(t *testing.T) {
	s := &arch.Sim{}
	var t_ arch.Transferer = s
	t_.Transfer(0x10000000, 0x20000000, 0x10001000)

	require.True(t, s.Called)
	require.Equal(t, uint32(0x10000001), s.Entry)
	require.Equal(t, uint32(0x20000000), s.SP)
	require.Equal(t, uint32(0x10001000), s.HandoffAddr)
}
