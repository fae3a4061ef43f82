package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func defineCountFreeCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "count-free",
		Short:        "Count free clusters, scanning the table if no cached count is available",
		SilenceUsage: true,
		RunE:         runCountFree,
	}
}

func runCountFree(cmd *cobra.Command, _ []string) error {
	vol, closeVol, err := openVolume(cmd)
	if err != nil {
		return err
	}
	defer closeVol()

	free, err := vol.CountFreeClusters()
	if err != nil {
		return fmt.Errorf("counting free clusters: %w", err)
	}
	fmt.Printf("free clusters: %d\n", free)
	return nil
}
