// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// DefinePutCommand builds the "put" subcommand, which copies a file into
// an image's root directory — a deliberately minimal, single-file, root-
// only writer, since mimiboot's own read-only core never needs a FAT32
// write path and this one exists purely to build test fixtures.
func DefinePutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "put <image> <short-name> <file>",
		Short:        "Copy a file into a FAT32 image's root directory",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE:         runPut,
	}
	return cmd
}

func runPut(cmd *cobra.Command, args []string) error {
	imagePath, shortName, filePath := args[0], args[1], args[2]

	img, err := os.ReadFile(imagePath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	dataStart := reservedSectors + fatSectors
	rootOff := dataStart * sectorSize

	slot := -1
	for off := rootOff; off+32 <= rootOff+sectorSize; off += 32 {
		if img[off] == 0x00 || img[off] == 0xE5 {
			slot = off
			break
		}
	}
	if slot < 0 {
		return fmt.Errorf("root directory full")
	}

	clustersNeeded := (len(data) + sectorSize - 1) / sectorSize
	if clustersNeeded == 0 {
		clustersNeeded = 1
	}
	startCluster := uint32(3) // cluster 2 is root; file data starts at 3 for this single-file tool

	le := func(b []byte, v uint32) {
		b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	}

	name := shortFATName(shortName)
	copy(img[slot:slot+11], name[:])
	img[slot+11] = 0x20 // ARCHIVE
	img[slot+20], img[slot+21] = byte(startCluster>>16), byte(startCluster>>24)
	img[slot+26], img[slot+27] = byte(startCluster), byte(startCluster>>8)
	le(img[slot+28:], uint32(len(data)))

	fatOff := reservedSectors * sectorSize
	for i := 0; i < clustersNeeded; i++ {
		cluster := startCluster + uint32(i)
		entry := uint32(0x0FFFFFFF)
		if i < clustersNeeded-1 {
			entry = cluster + 1
		}
		le(img[fatOff+int(cluster)*4:], entry)
	}

	fileOff := (dataStart + int(startCluster) - 2) * sectorSize
	if fileOff+len(data) > len(img) {
		return fmt.Errorf("image too small for file")
	}
	copy(img[fileOff:], data)

	if err := os.WriteFile(imagePath, img, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes) as %s into %s\n", filePath, len(data), shortName, imagePath)
	return nil
}

// shortFATName renders "NAME.EXT" as the fixed 11-byte 8.3 field.
func shortFATName(name string) [11]byte {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}
	base, ext, _ := strings.Cut(strings.ToUpper(name), ".")
	copy(out[0:8], base)
	copy(out[8:11], ext)
	return out
}
