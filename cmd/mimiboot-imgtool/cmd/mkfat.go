// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

const (
	sectorSize      = 512
	reservedSectors = 32
	fatSectors      = 8
)

// DefineMkfatCommand builds the "mkfat" subcommand, which creates a blank
// FAT32 image — host-side tooling that never ships in the bootloader
// binary, matching the distinction the specification draws between the
// read-only core and flash-image tooling.
func DefineMkfatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mkfat <image> <size-in-mb>",
		Short:        "Create a blank FAT32 image",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         runMkfat,
	}
	return cmd
}

func runMkfat(cmd *cobra.Command, args []string) error {
	path := args[0]
	sizeMB, err := strconv.Atoi(args[1])
	if err != nil || sizeMB <= 0 {
		return fmt.Errorf("invalid size %q", args[1])
	}

	totalSectors := (sizeMB * 1024 * 1024) / sectorSize
	img := make([]byte, totalSectors*sectorSize)

	le := func(b []byte, v uint32) {
		b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	}

	img[0], img[1], img[2] = 0xEB, 0x00, 0x90
	img[11], img[12] = byte(sectorSize), byte(sectorSize>>8)
	img[13] = 1 // sectors per cluster
	img[14], img[15] = byte(reservedSectors), byte(reservedSectors>>8)
	img[16] = 1 // NumFATs
	le(img[32:], uint32(totalSectors))
	le(img[36:], fatSectors)
	le(img[44:], 2) // root cluster
	img[510], img[511] = 0x55, 0xAA

	// Root cluster's FAT entry marks end-of-chain; everything else is free.
	fatOff := reservedSectors * sectorSize
	le(img[fatOff+0:], 0x0FFFFFF8)
	le(img[fatOff+4:], 0x0FFFFFFF)
	le(img[fatOff+8:], 0x0FFFFFF8)

	if err := os.WriteFile(path, img, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d MiB, %d sectors)\n", path, sizeMB, totalSectors)
	return nil
}
