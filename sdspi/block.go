// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdspi

import "github.com/milkmanabi/mimiboot/mimierr"

// ReadBlocks reads count consecutive BlockSize-byte blocks starting at lba
// into buf, which must be exactly count*BlockSize bytes long. It implements
// the single- and multi-block read paths of sd_read_blocks: standard-
// capacity cards address by byte offset (lba*BlockSize), high-capacity
// cards address directly by block number.
func (c *Card) ReadBlocks(lba uint32, count int, buf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready {
		return mimierr.New(mimierr.KindStorage, nil, "card not initialized")
	}
	if len(buf) != count*BlockSize {
		return mimierr.New(mimierr.KindStorage, nil, "buffer size mismatch")
	}
	if count <= 0 {
		return nil
	}

	addr := lba
	if !c.info.HighCapacity {
		addr = lba * BlockSize
	}

	c.transport.SelectCard(true)
	defer c.transport.SelectCard(false)

	if count == 1 {
		return c.readSingleBlock(addr, buf)
	}
	return c.readMultipleBlocks(addr, count, buf)
}

func (c *Card) readSingleBlock(addr uint32, buf []byte) error {
	r1, err := c.sendCommand(cmdReadSingleBlock, addr)
	if err != nil {
		return err
	}
	if r1 != 0 {
		return mimierr.New(mimierr.KindStorage, nil, "CMD17 (READ_SINGLE_BLOCK) failed")
	}
	return c.readDataBlock(buf, dataTokenSingle)
}

func (c *Card) readMultipleBlocks(addr uint32, count int, buf []byte) error {
	r1, err := c.sendCommand(cmdReadMultipleBlock, addr)
	if err != nil {
		return err
	}
	if r1 != 0 {
		return mimierr.New(mimierr.KindStorage, nil, "CMD18 (READ_MULTIPLE_BLOCK) failed")
	}
	for i := 0; i < count; i++ {
		if err := c.readDataBlock(buf[i*BlockSize:(i+1)*BlockSize], dataTokenMultiple); err != nil {
			c.sendCommand(cmdStopTransmission, 0)
			return err
		}
	}
	if _, err := c.sendCommand(cmdStopTransmission, 0); err != nil {
		return err
	}
	c.waitReady(65536)
	return nil
}

// readDataBlock waits for the given data token then clocks in BlockSize
// payload bytes plus a 2-byte CRC16 trailer, matching sd_read_blocks'
// per-block data phase.
func (c *Card) readDataBlock(dst []byte, token byte) error {
	one := []byte{0xFF}
	resp := []byte{0xFF}
	found := false
	for i := 0; i < 65536; i++ {
		c.transport.Exchange(one, resp)
		if resp[0] == token {
			found = true
			break
		}
		if resp[0] != 0xFF {
			return mimierr.New(mimierr.KindStorage, nil, "data error token received")
		}
	}
	if !found {
		return mimierr.New(mimierr.KindStorage, nil, "data token timeout")
	}

	tx := make([]byte, BlockSize)
	for i := range tx {
		tx[i] = 0xFF
	}
	if err := c.Transport().Exchange(tx, dst); err != nil {
		return mimierr.New(mimierr.KindStorage, err, "block data exchange")
	}

	crc := make([]byte, 2)
	crcrx := make([]byte, 2)
	c.transport.Exchange(crc, crcrx)
	return nil
}

// Transport exposes the underlying byte-level transport, used by
// readDataBlock and by tests that need to drive the fake transport
// directly.
func (c *Card) Transport() Transport {
	return c.transport
}
