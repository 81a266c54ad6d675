// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdspi

import "github.com/milkmanabi/mimiboot/mimierr"

// readCSDBlocks issues CMD9 (SEND_CSD), reads the 16-byte CSD register, and
// computes the card's block count for both CSD structure versions, matching
// sd_spi.c's CSD handling: version 1.0 uses the C_SIZE/C_SIZE_MULT/
// READ_BL_LEN triple, version 2.0 (SDHC/SDXC) uses the simpler C_SIZE field
// directly.
func (c *Card) readCSDBlocks() (uint32, error) {
	r1, err := c.sendCommand(cmdSendCSD, 0)
	if err != nil {
		return 0, err
	}
	if r1 != 0 {
		return 0, mimierr.New(mimierr.KindStorage, nil, "CMD9 (SEND_CSD) failed")
	}

	if !c.waitForDataToken() {
		return 0, mimierr.New(mimierr.KindStorage, nil, "CSD data token timeout")
	}

	csd := make([]byte, 16)
	rx := make([]byte, 16)
	c.transport.Exchange(csd, rx)
	csd = rx

	// discard CRC16 trailer
	crcbuf := make([]byte, 2)
	crcrx := make([]byte, 2)
	c.transport.Exchange(crcbuf, crcrx)

	version := csd[0] >> 6
	if version == 1 {
		cSize := uint32(csd[7]&0x3F)<<16 | uint32(csd[8])<<8 | uint32(csd[9])
		return (cSize + 1) * 1024, nil
	}

	cSize := uint32(csd[6]&0x03)<<10 | uint32(csd[7])<<2 | uint32(csd[8])>>6
	cSizeMult := uint32(csd[9]&0x03)<<1 | uint32(csd[10])>>7
	readBlLen := csd[5] & 0x0F

	blockCount := (cSize + 1) << (cSizeMult + 2)
	blockLen := uint32(1) << readBlLen
	return blockCount * blockLen / BlockSize, nil
}

// waitForDataToken clocks the bus waiting for the 0xFE single-block data
// start token, bounded the way sd_spi.c bounds its own wait loops.
func (c *Card) waitForDataToken() bool {
	one := []byte{0xFF}
	resp := []byte{0xFF}
	for i := 0; i < 8192; i++ {
		c.transport.Exchange(one, resp)
		if resp[0] == dataTokenSingle {
			return true
		}
		if resp[0] != 0xFF {
			return false
		}
	}
	return false
}
