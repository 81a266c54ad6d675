// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/spf13/cobra"

	"github.com/milkmanabi/mimiboot/board/qemu"
	"github.com/milkmanabi/mimiboot/elf32"
	"github.com/milkmanabi/mimiboot/platform"
)

// elfInfoParameters mirrors dsoprea/go-exfat's cmd/exfat_print_boot_sector_header
// style: a single flat struct decorated with go-flags tags, parsed
// independently of Cobra's own flag set.
type elfInfoParameters struct {
	Filepath string `short:"f" long:"filepath" description:"Path to an ELF32 image" required:"true"`
	RAMBase  uint32 `long:"ram-base" description:"Base address of the simulated load region" default:"268435456"`
	RAMSize  uint32 `long:"ram-size" description:"Size of the simulated load region" default:"16777216"`
}

// DefineElfInfoCommand builds the "elf-info" subcommand. It re-parses its
// own arguments with go-flags rather than reading Cobra flags, so that
// dependency gets concrete, direct exercise the way go-exfat's CLI tools
// use it.
func DefineElfInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:                "elf-info [-- go-flags style arguments]",
		Short:              "Print ELF32 header and program header info",
		SilenceUsage:       true,
		DisableFlagParsing: true,
		RunE:               runElfInfo,
	}
	return cmd
}

func runElfInfo(cmd *cobra.Command, rawArgs []string) error {
	params := new(elfInfoParameters)
	parser := flags.NewParser(params, flags.Default)
	if _, err := parser.ParseArgs(rawArgs); err != nil {
		return err
	}

	f, err := os.Open(params.Filepath)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	reader := &osFileReader{f: f, size: uint32(st.Size())}

	placer := qemu.NewRAMWindow(params.RAMBase, params.RAMSize)
	regions := []platform.Region{{
		Name:  "ram",
		Base:  params.RAMBase,
		Size:  params.RAMSize,
		Flags: platform.RegionRead | platform.RegionWrite | platform.RegionExec | platform.RegionRAM,
	}}

	result, err := elf32.Load(reader, placer, regions, elf32.Options{Verify: true})
	if err != nil {
		return err
	}

	fmt.Printf("entry:      0x%08X\n", result.Entry)
	fmt.Printf("load base:  0x%08X\n", result.LoadBase)
	fmt.Printf("load size:  %s\n", humanize.Bytes(uint64(result.LoadSize)))
	for _, w := range result.Warnings {
		fmt.Printf("warning:    %s\n", w)
	}
	return nil
}

// osFileReader adapts *os.File to elf32.Reader's absolute-offset Seek.
type osFileReader struct {
	f    *os.File
	size uint32
}

func (r *osFileReader) Seek(offset uint32) error {
	_, err := r.f.Seek(int64(offset), 0)
	return err
}
func (r *osFileReader) Size() uint32 { return r.size }
func (r *osFileReader) Read(p []byte) (int, error) {
	return r.f.Read(p)
}
