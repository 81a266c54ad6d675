// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/milkmanabi/mimiboot/handoff"
)

// DefineHandoffDumpCommand builds the "handoff-dump" subcommand, which
// decodes a raw 256-byte handoff blob (as a loaded image would receive
// it), verifying the header CRC32 and printing the region table.
func DefineHandoffDumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "handoff-dump <file>",
		Short:        "Decode and print a raw handoff descriptor",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runHandoffDump,
	}
	return cmd
}

func runHandoffDump(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if len(raw) != handoff.Size {
		return fmt.Errorf("expected %d bytes, got %d", handoff.Size, len(raw))
	}

	d, err := handoff.Decode(raw)
	if err != nil {
		return err
	}

	fmt.Printf("magic:         0x%08X\n", d.Magic)
	fmt.Printf("version:       %d\n", d.Version)
	fmt.Printf("boot reason:   0x%X\n", d.BootReason)
	fmt.Printf("boot source:   0x%X\n", d.BootSource)
	fmt.Printf("boot count:    %d\n", d.BootCount)
	fmt.Printf("boot time:     %s\n", humanize.Comma(int64(d.BootTimeUS)))
	fmt.Printf("loader time:   %s\n", humanize.Comma(int64(d.LoaderTimeUS)))
	fmt.Printf("RAM:           0x%08X + %s\n", d.RAMBase, humanize.Bytes(uint64(d.RAMSize)))
	fmt.Printf("flash:         0x%08X + %s\n", d.FlashBase, humanize.Bytes(uint64(d.FlashSize)))
	fmt.Printf("image entry:   0x%08X\n", d.Image.Entry)
	fmt.Printf("image load:    0x%08X + %s\n", d.Image.LoadBase, humanize.Bytes(uint64(d.Image.LoadSize)))
	fmt.Printf("regions:       %d\n", d.RegionCount)
	for i := uint32(0); i < d.RegionCount && i < uint32(len(d.Regions)); i++ {
		r := d.Regions[i]
		fmt.Printf("  [%d] base=0x%08X size=%s flags=0x%X\n", i, r.Base, humanize.Bytes(uint64(r.Size)), r.Flags)
	}
	return nil
}
