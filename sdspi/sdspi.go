// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sdspi implements the SD/MMC bit-banged SPI-mode cold-start state
// machine and block I/O described by the boot path's storage component,
// grounded line-for-line on the original firmware's hal/rp2040/sd_spi.c
// (command framing, CRC7, the CMD0/CMD8/ACMD41/CMD58 bring-up sequence) and
// shaped, in Go, after tamago's imx6/usdhc package: a sync.Mutex-guarded
// Card type exposing Init/Detect/ReadBlocks plus a CardInfo snapshot of
// what was detected.
//
// The raw SPI exchange and chip-select control are left to the Transport
// interface — the external HAL contract named by the specification — so
// this package never touches a register directly and can be exercised
// host-side against a synthetic card in tests.
package sdspi

import (
	"sync"

	"github.com/milkmanabi/mimiboot/mimierr"
)

// BlockSize is the fixed SD/MMC block size this driver supports.
const BlockSize = 512

// Transport is the byte-level SPI contract a concrete board wires against a
// real SPI peripheral and GPIO chip-select line.
type Transport interface {
	// Exchange clocks out tx and clocks in an equal number of bytes into rx.
	// tx and rx may be the same or different lengths are not permitted:
	// len(rx) must equal len(tx).
	Exchange(tx, rx []byte) error
	// SelectCard asserts (true) or deasserts (false) chip-select.
	SelectCard(asserted bool)
}

// CardType distinguishes the card kinds the cold-start sequence can detect.
type CardType int

const (
	CardTypeUnknown CardType = iota
	CardTypeSD1
	CardTypeSD2
	CardTypeSDHC
	CardTypeMMC
)

// CardInfo snapshots what Detect learned about the attached card, mirroring
// the fields tamago's usdhc.CardInfo exposes for its hardware-engine cards.
type CardInfo struct {
	Type       CardType
	HighCapacity bool
	Blocks     uint32
	BlockSize  uint32
}

// Card is a non-reentrant SD/MMC SPI-mode driver instance.
type Card struct {
	mu        sync.Mutex
	transport Transport
	info      CardInfo
	ready     bool
}

// New returns a Card bound to the given byte-level transport.
func New(transport Transport) *Card {
	return &Card{transport: transport}
}

// Info returns the most recent detection snapshot. Valid only after a
// successful Detect.
func (c *Card) Info() CardInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

const (
	cmdGoIdleState     = 0
	cmdSendIfCond      = 8
	cmdSendCSD         = 9
	cmdStopTransmission = 12
	cmdSendStatus      = 13
	cmdSetBlocklen     = 16
	cmdReadSingleBlock = 17
	cmdReadMultipleBlock = 18
	cmdAppSendOpCond   = 41
	cmdAppCmd          = 55
	cmdReadOCR         = 58

	r1IdleState = 0x01
	dataTokenSingle    = 0xFE
	dataTokenMultiple  = 0xFC

	maxInitAttempts = 64
)

// crc7 computes the SD command CRC7 (poly x^7+x^3+1), matching sd_crc7 in
// sd_spi.c exactly.
func crc7(data []byte) byte {
	var crc byte
	for _, b := range data {
		for i := 0; i < 8; i++ {
			crc <<= 1
			if (b^crc)&0x80 != 0 {
				crc ^= 0x09
			}
			b <<= 1
		}
	}
	return (crc << 1) | 1
}

// sendCommand frames and transmits an SD SPI command, returning the R1
// response byte. It mirrors sd_command's framing byte-for-byte: a start bit
// of 0 / transmission bit of 1 (the 0x40 | index byte), a 4-byte big-endian
// argument, and a CRC7 + stop bit trailer, followed by up to 8 bytes of
// clocking while polling for a response byte whose MSB is clear.
func (c *Card) sendCommand(index byte, arg uint32) (byte, error) {
	frame := make([]byte, 6)
	frame[0] = 0x40 | index
	frame[1] = byte(arg >> 24)
	frame[2] = byte(arg >> 16)
	frame[3] = byte(arg >> 8)
	frame[4] = byte(arg)
	frame[5] = crc7(frame[:5])

	rx := make([]byte, len(frame))
	if err := c.transport.Exchange(frame, rx); err != nil {
		return 0, mimierr.New(mimierr.KindStorage, err, "command exchange")
	}

	one := []byte{0xFF}
	resp := []byte{0xFF}
	for i := 0; i < 8; i++ {
		if err := c.transport.Exchange(one, resp); err != nil {
			return 0, mimierr.New(mimierr.KindStorage, err, "response poll")
		}
		if resp[0]&0x80 == 0 {
			return resp[0], nil
		}
	}
	return 0, mimierr.New(mimierr.KindStorage, nil, "no response to CMD"+string(rune('0'+index)))
}

func (c *Card) appCommand(index byte, arg uint32) (byte, error) {
	r1, err := c.sendCommand(cmdAppCmd, 0)
	if err != nil {
		return 0, err
	}
	if r1 > r1IdleState {
		return r1, nil
	}
	return c.sendCommand(index, arg)
}

// waitReady clocks the bus with 0xFF until the card returns 0xFF (ready) or
// attempts are exhausted, matching sd_wait_ready.
func (c *Card) waitReady(attempts int) bool {
	one := []byte{0xFF}
	resp := []byte{0xFF}
	for i := 0; i < attempts; i++ {
		c.transport.Exchange(one, resp)
		if resp[0] == 0xFF {
			return true
		}
	}
	return false
}

// Init runs the SPI cold-start cadence (74+ clock cycles with CS
// deasserted, then CMD0) the caller must invoke once before Detect, mirrors
// sd_init's preamble.
func (c *Card) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transport.SelectCard(false)
	idle := make([]byte, 10)
	for i := range idle {
		idle[i] = 0xFF
	}
	rx := make([]byte, len(idle))
	if err := c.transport.Exchange(idle, rx); err != nil {
		return mimierr.New(mimierr.KindStorage, err, "clock preamble")
	}

	c.transport.SelectCard(true)
	defer c.transport.SelectCard(false)

	r1, err := c.sendCommand(cmdGoIdleState, 0)
	if err != nil {
		return err
	}
	if r1 != r1IdleState {
		return mimierr.New(mimierr.KindStorage, nil, "card did not enter idle state")
	}
	return nil
}

// Detect runs the CMD8/ACMD41/CMD58 bring-up sequence, classifying the
// attached card and recording its capacity, mirroring sd_init's body after
// the CMD0 preamble (voltage check via CMD8, op-cond polling via ACMD41,
// OCR/CCS readback via CMD58) and tamago's voltageValidationSD in shape.
func (c *Card) Detect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transport.SelectCard(true)
	defer c.transport.SelectCard(false)

	v2 := false
	r1, err := c.sendCommand(cmdSendIfCond, 0x000001AA)
	if err != nil {
		return err
	}
	if r1&0x04 == 0 {
		// CMD8 accepted: card supports CMD8 (version 2.00+).
		echo := make([]byte, 4)
		rx := make([]byte, 4)
		c.transport.Exchange(echo, rx)
		v2 = true
	}

	ready := false
	for i := 0; i < maxInitAttempts; i++ {
		arg := uint32(0)
		if v2 {
			arg = 1 << 30 // HCS bit
		}
		r1, err = c.appCommand(cmdAppSendOpCond, arg)
		if err != nil {
			return err
		}
		if r1 == 0 {
			ready = true
			break
		}
		if r1&0xFE != 0 && r1 != r1IdleState {
			return mimierr.New(mimierr.KindStorage, nil, "card rejected initialization")
		}
	}
	if !ready {
		return mimierr.New(mimierr.KindStorage, nil, "card did not leave idle state")
	}

	highCapacity := false
	if v2 {
		r1, err = c.sendCommand(cmdReadOCR, 0)
		if err != nil {
			return err
		}
		if r1 != 0 {
			return mimierr.New(mimierr.KindStorage, nil, "CMD58 (READ_OCR) failed")
		}
		ocr := make([]byte, 4)
		rx := make([]byte, 4)
		c.transport.Exchange(ocr, rx)
		highCapacity = rx[0]&0x40 != 0
	}

	blocks, err := c.readCSDBlocks()
	if err != nil {
		return err
	}

	cardType := CardTypeSD1
	switch {
	case highCapacity:
		cardType = CardTypeSDHC
	case v2:
		cardType = CardTypeSD2
	}

	if !highCapacity {
		// Fixed-block-size cards need CMD16 before reads; HC/XC cards
		// always use a fixed 512-byte block and ignore CMD16.
		r1, err = c.sendCommand(cmdSetBlocklen, BlockSize)
		if err != nil {
			return err
		}
		if r1 != 0 {
			return mimierr.New(mimierr.KindStorage, nil, "CMD16 (SET_BLOCKLEN) failed")
		}
	}

	c.info = CardInfo{
		Type:         cardType,
		HighCapacity: highCapacity,
		Blocks:       blocks,
		BlockSize:    BlockSize,
	}
	c.ready = true
	return nil
}

// Status issues CMD13 (SEND_STATUS), a diagnostic read-only operation
// present in the original's command set but absent from the distillation's
// state-machine table.
func (c *Card) Status() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport.SelectCard(true)
	defer c.transport.SelectCard(false)
	return c.sendCommand(cmdSendStatus, 0)
}
