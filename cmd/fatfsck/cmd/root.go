// Package cmd implements the fatfsck command-line tool: a thin driver over
// package fat's free-count and mark-bad operations, for ad hoc
// inspection and repair of a FAT volume's allocation table outside of a
// full mount.
package cmd

import (
	"github.com/spf13/cobra"
)

const appName = "fatfsck"

// Execute builds and runs the root command.
func Execute() error {
	root := &cobra.Command{
		Use:   appName,
		Short: appName + " - inspect and repair a FAT allocation table",
	}

	root.PersistentFlags().StringP("image", "i", "", "path to the filesystem image or block device")
	root.PersistentFlags().String("variant", "16", "FAT variant: 12, 16, or 32")
	root.PersistentFlags().Int64("fat-offset-bytes", 512, "byte offset of the first FAT copy within the image")
	root.PersistentFlags().Int64("fat-blocks", 1, "length, in blocks, of a single FAT copy")
	root.PersistentFlags().Int("num-fats", 2, "number of FAT copies on the volume")
	root.PersistentFlags().Uint32("max-cluster", 0xFFFF, "one past the highest valid entry index on the volume")
	_ = root.MarkPersistentFlagRequired("image")

	root.AddCommand(defineCountFreeCommand())
	root.AddCommand(defineMarkBadCommand())

	return root.Execute()
}
