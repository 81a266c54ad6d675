// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command mimiboot-imgtool is host-side development tooling for building
// and inspecting the FAT32 card images and ELF payloads the bootloader
// core reads — never linked into the bootloader binary itself, the same
// way ostafen/digler's cmd tree is a separate disk-analysis binary from
// any embedded component it might inspect. Its command tree follows
// digler's cmd/cmd layout; elf-info uses go-flags in the style of
// dsoprea/go-exfat's single-purpose CLI tools rather than Cobra's own flag
// parsing, so that dependency gets concrete exercise too.
package main

import (
	"fmt"
	"os"

	"github.com/milkmanabi/mimiboot/cmd/mimiboot-imgtool/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
