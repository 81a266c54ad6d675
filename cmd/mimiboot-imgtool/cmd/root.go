// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import "github.com/spf13/cobra"

const AppName = "mimiboot-imgtool"

// Execute builds and runs the imgtool command tree.
func Execute() error {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: AppName + " - build and inspect mimiboot FAT32 images and ELF payloads",
	}

	rootCmd.AddCommand(DefineMkfatCommand())
	rootCmd.AddCommand(DefinePutCommand())
	rootCmd.AddCommand(DefineFsckCommand())
	rootCmd.AddCommand(DefineElfInfoCommand())
	rootCmd.AddCommand(DefineHandoffDumpCommand())

	return rootCmd.Execute()
}
