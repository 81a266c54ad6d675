// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/milkmanabi/mimiboot/board/qemu"
	"github.com/milkmanabi/mimiboot/fat32"
)

// DefineFsckCommand builds the "fsck" subcommand, which mounts a FAT32
// image read-only with the same fat32 package the bootloader core uses
// and reports basic volume health.
func DefineFsckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "fsck <image>",
		Short:        "Check a FAT32 image for mountability",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runFsck,
	}
	return cmd
}

func runFsck(cmd *cobra.Command, args []string) error {
	storage, err := qemu.OpenFileStorage(args[0])
	if err != nil {
		return err
	}
	defer storage.Close()

	vol, err := fat32.Mount(storage)
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}

	fmt.Println("volume mounted successfully")

	for _, probe := range []string{"/kernel.bin", "/boot.cfg"} {
		if vol.Exists(probe) {
			f, err := vol.Open(probe)
			if err != nil {
				fmt.Printf("  %s: present, but open failed: %v\n", probe, err)
				continue
			}
			fmt.Printf("  %s: present, %s\n", probe, humanize.Bytes(uint64(f.Size())))
		} else {
			fmt.Printf("  %s: not present\n", probe)
		}
	}
	return nil
}
