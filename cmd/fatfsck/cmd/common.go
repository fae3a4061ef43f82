package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/diskfs/go-fatfs/backend"
	backendfile "github.com/diskfs/go-fatfs/backend/file"
	"github.com/diskfs/go-fatfs/blockcache"
	"github.com/diskfs/go-fatfs/fat"
	"github.com/diskfs/go-fatfs/reporter"
)

const defaultBlockSize = 512

// openVolume opens the image named by the --image flag and builds a
// fat.Volume over the FAT region carved out of it. Every invocation is
// tagged with a fresh correlation ID so the reporter's log lines from one
// run of the tool can be told apart from another's when several runs'
// output is interleaved.
func openVolume(cmd *cobra.Command, extra ...fat.Option) (*fat.Volume, func(), error) {
	imagePath, _ := cmd.Flags().GetString("image")
	variantStr, _ := cmd.Flags().GetString("variant")
	fatOffset, _ := cmd.Flags().GetInt64("fat-offset-bytes")
	fatBlocks, _ := cmd.Flags().GetInt64("fat-blocks")
	numFATs, _ := cmd.Flags().GetInt("num-fats")
	maxCluster, _ := cmd.Flags().GetUint32("max-cluster")

	variant, err := parseVariant(variantStr)
	if err != nil {
		return nil, nil, err
	}

	runID := uuid.New().String()
	log := logrus.WithField("run", runID)

	store, err := backendfile.OpenFromPath(imagePath, false)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", imagePath, err)
	}

	// a single FAT copy's on-disk region, offset from the start of the
	// image; NumFATs copies of this size follow back to back starting at
	// fatOffset, so the Volume itself only ever sees block-relative
	// addressing within the first copy and computes mirror offsets from
	// FATBlocks/NumFATs (see fat/mirror.go).
	fatRegionBytes := fatBlocks * int64(defaultBlockSize) * int64(numFATs)
	fatRegion := backend.Sub(store, fatOffset, fatRegionBytes)

	cache := blockcache.New(fatRegion, defaultBlockSize)
	rep := reporter.New(logrus.StandardLogger(), time.Second)

	params := fat.VolumeParams{
		Variant:       variant,
		BlockSize:     defaultBlockSize,
		FirstFATBlock: 0,
		FATBlocks:     uint64(fatBlocks),
		NumFATs:       numFATs,
		MaxCluster:    maxCluster,
	}
	opts := append([]fat.Option{fat.WithReporter(rep)}, extra...)
	vol, err := fat.NewVolume(params, cache, opts...)
	if err != nil {
		return nil, nil, err
	}

	log.Info("opened volume")
	return vol, func() { _ = store.Close() }, nil
}

func parseVariant(s string) (fat.Variant, error) {
	switch s {
	case "12":
		return fat.Variant12, nil
	case "16":
		return fat.Variant16, nil
	case "32":
		return fat.Variant32, nil
	default:
		return 0, fmt.Errorf("unsupported --variant %q: must be 12, 16, or 32", s)
	}
}
