package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/cam-pipeline/internal/config"
	"github.com/fpang/cam-pipeline/internal/landing"
	"github.com/fpang/cam-pipeline/internal/logging"
)

var (
	incomingFlag  string
	processedFlag string
)

var receiverCmd = &cobra.Command{
	Use:   "receiver",
	Short: "Land uploaded camera archives as batch directories",
	Run:   runReceiver,
}

func init() {
	receiverCmd.Flags().StringVar(&incomingFlag, "incoming", "", "Incoming archive directory (overrides INCOMING_DIR)")
	receiverCmd.Flags().StringVar(&processedFlag, "processed", "", "Processed batch root (overrides PROCESSED_DIR)")
	rootCmd.AddCommand(receiverCmd)
}

func runReceiver(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg := config.LoadReceiver()
	if incomingFlag != "" {
		cfg.IncomingDir = incomingFlag
	}
	if processedFlag != "" {
		cfg.ProcessedDir = processedFlag
	}

	if err := os.MkdirAll(cfg.IncomingDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.IncomingDir).Msg("Failed to create incoming directory")
	}
	if err := os.MkdirAll(cfg.ProcessedDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ProcessedDir).Msg("Failed to create processed directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	receiver := &landing.Receiver{
		IncomingDir:  cfg.IncomingDir,
		ProcessedDir: cfg.ProcessedDir,
		QuietPeriod:  cfg.QuietPeriod,
	}
	receiver.Run(ctx, cfg.ScanInterval)
}
