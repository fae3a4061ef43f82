package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/diskfs/go-fatfs/fat"
)

func defineMarkBadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mark-bad <from-cluster>",
		Short:        "Mark every free cluster from a starting entry onward as bad",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runMarkBad,
	}
	cmd.Flags().Bool("sync", false, "flush synchronously before mirroring")
	return cmd
}

func runMarkBad(cmd *cobra.Command, args []string) error {
	from, err := parseClusterNumber(args[0])
	if err != nil {
		return err
	}

	vol, closeVol, err := openVolume(cmd, fat.WithBadRangeMarking())
	if err != nil {
		return err
	}
	defer closeVol()

	sync, _ := cmd.Flags().GetBool("sync")
	marked, err := vol.MarkRangeBad(from, fat.Inode{Name: "fatfsck", Sync: sync})
	if err != nil {
		return fmt.Errorf("marking clusters bad: %w", err)
	}
	fmt.Printf("marked %d cluster(s) bad\n", marked)
	return nil
}

func parseClusterNumber(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid cluster number %q: %w", s, err)
	}
	return uint32(n), nil
}
