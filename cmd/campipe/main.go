package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the main Cobra command for the pipeline.
var rootCmd = &cobra.Command{
	Use:   "campipe",
	Short: "Camera batch processing pipeline",
	Long: `campipe moves image batches captured by a remote camera node through a
processing pipeline.

The receiver lands uploaded ZIP archives as batch directories: it waits for
each archive to stop changing, verifies it, extracts it safely and publishes
the batch with a single atomic rename.

The worker scans landed batches, classifies every image through the inference
sidecar, records each decision in a daily CSV log, moves batches with
detections into the events root and uploads the flagged images exactly once.

All tunables come from the environment (a .env file is honoured); see
internal/config for the full list and defaults.

Examples:
  campipe receiver
  campipe worker
  campipe worker --data-root /data/cam_uploads/processed --events-root /data/events`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
