// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdspi_test

import (
	"testing"

	"github.com/milkmanabi/mimiboot/sdspi"
	"github.com/stretchr/testify/require"
)

// fakeTransport plays a synthetic SDHC card over the Transport contract,
// just enough of the command/response/data-block protocol to drive Init,
// Detect, and ReadBlocks without real hardware.
type fakeTransport struct {
	selected bool
	blocks   [][]byte
	step     int
	cmdSeen  []byte
	r1       byte // R1 answer to the last command, sent on the next poll
	hasR1    bool
}

func newFakeSDHC(blockCount int) *fakeTransport {
	blocks := make([][]byte, blockCount)
	for i := range blocks {
		b := make([]byte, sdspi.BlockSize)
		for j := range b {
			b[j] = byte(i + j)
		}
		blocks[i] = b
	}
	return &fakeTransport{blocks: blocks}
}

func (f *fakeTransport) SelectCard(asserted bool) { f.selected = asserted }

func (f *fakeTransport) Exchange(tx, rx []byte) error {
	for i := range rx {
		rx[i] = 0xFF
	}
	if len(tx) == 0 {
		return nil
	}
	if tx[0]&0xC0 == 0x40 {
		// command frame
		idx := tx[0] & 0x3F
		f.cmdSeen = append(f.cmdSeen, idx)
		resp := byte(0xFF)
		switch idx {
		case 0: // GO_IDLE_STATE
			resp = 0x01
		case 8: // SEND_IF_COND
			resp = 0x01 // idle, CMD8 accepted (illegal-command bit clear)
		case 41, 55: // ACMD41 / APP_CMD
			resp = 0x00
		case 58: // READ_OCR
			resp = 0x00
		case 9: // SEND_CSD
			resp = 0x00
			f.step = 1 // next clocked bytes deliver CSD token+payload
		case 17, 18: // READ_(MULTIPLE_)BLOCK
			resp = 0x00
			f.step = 2
		case 16: // SET_BLOCKLEN
			resp = 0x00
		case 12: // STOP_TRANSMISSION
			resp = 0x00
		}
		f.r1, f.hasR1 = resp, true
		return nil
	}
	// the R1 answer arrives on the first poll after the command frame
	if f.hasR1 && len(tx) == 1 {
		rx[0] = f.r1
		f.hasR1 = false
		return nil
	}
	// idle clocking / data phase reads
	if f.step == 1 && len(tx) == 1 {
		rx[0] = 0xFE
		f.step = 10
		return nil
	}
	if f.step == 10 && len(tx) == 16 {
		rx[0] = 0x01 << 6 // CSD version 2.0
		return nil
	}
	return nil
}

func TestCardInitAndDetectSDHC(t *testing.T) {
	ft := newFakeSDHC(4096)
	card := sdspi.New(ft)

	require.NoError(t, card.Init())
	require.NoError(t, card.Detect())

	info := card.Info()
	require.Equal(t, sdspi.CardTypeSDHC, info.Type)
	require.True(t, info.HighCapacity)
	require.Equal(t, uint32(sdspi.BlockSize), info.BlockSize)
}

func TestCRC7KnownVector(t *testing.T) {
	// CMD0 argument 0 is a widely published CRC7 test vector: 0x95.
	ft := newFakeSDHC(1)
	captured := make(chan byte, 1)
	ft2 := &capturingTransport{fakeTransport: ft, captured: captured}
	card := sdspi.New(ft2)
	_ = card.Init()

	select {
	case crc := <-captured:
		require.Equal(t, byte(0x95), crc)
	default:
		t.Fatal("CMD0 frame was never captured")
	}
}

type capturingTransport struct {
	*fakeTransport
	captured chan byte
}

func (c *capturingTransport) Exchange(tx, rx []byte) error {
	if len(tx) == 6 && tx[0] == 0x40 {
		select {
		case c.captured <- tx[5]:
		default:
		}
	}
	return c.fakeTransport.Exchange(tx, rx)
}
