package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/cam-pipeline/internal/classify"
	"github.com/fpang/cam-pipeline/internal/config"
	"github.com/fpang/cam-pipeline/internal/detect"
	"github.com/fpang/cam-pipeline/internal/logging"
	"github.com/fpang/cam-pipeline/internal/results"
	"github.com/fpang/cam-pipeline/internal/route"
	"github.com/fpang/cam-pipeline/internal/state"
	"github.com/fpang/cam-pipeline/internal/upload"
	"github.com/fpang/cam-pipeline/internal/worker"
)

var (
	dataRootFlag   string
	eventsRootFlag string
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Classify landed batches and route detections",
	Run:   runWorker,
}

func init() {
	workerCmd.Flags().StringVar(&dataRootFlag, "data-root", "", "Batch data root (overrides DATA_ROOT)")
	workerCmd.Flags().StringVar(&eventsRootFlag, "events-root", "", "Events root (overrides EVENTS_ROOT)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg := config.LoadWorker()
	if dataRootFlag != "" {
		cfg.DataRoot = dataRootFlag
	}
	if eventsRootFlag != "" {
		cfg.EventsRoot = eventsRootFlag
	}

	// The data root is produced by the receiver (possibly on another host);
	// its absence means the mount is missing, which nothing downstream can
	// recover from.
	if info, err := os.Stat(cfg.DataRoot); err != nil || !info.IsDir() {
		log.Fatal().Str("data_root", cfg.DataRoot).Msg("Data root not found")
	}
	for _, dir := range []string{cfg.EventsRoot, cfg.LogsRoot, filepath.Dir(cfg.StatePath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("Failed to create directory")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	classifier := classify.NewHTTPClassifier(cfg.InferenceURL)
	if err := classifier.CheckHealth(ctx); err != nil {
		log.Warn().Err(err).Str("url", cfg.InferenceURL).Msg("Inference service health check failed")
	} else {
		log.Info().Str("url", cfg.InferenceURL).Msg("Inference service ready")
	}

	pipeline := &worker.Pipeline{
		Detector: &detect.Detector{
			DataRoot:     cfg.DataRoot,
			StableWindow: cfg.StableWindow,
			MinImages:    cfg.MinImages,
		},
		Store: &state.Store{Path: cfg.StatePath},
		Runner: &classify.Runner{
			Classifier:  classifier,
			TargetLabel: cfg.TargetLabel,
			Threshold:   cfg.Threshold,
		},
		Log:      &results.Log{Dir: cfg.LogsRoot},
		Router:   &route.Router{EventsRoot: cfg.EventsRoot},
		Uploader: buildUploader(ctx, cfg),
	}
	pipeline.Run(ctx, cfg.ScanInterval)
}

// buildUploader returns nil when uploads are disabled.
func buildUploader(ctx context.Context, cfg config.Worker) *upload.Uploader {
	var sink upload.Sink
	switch cfg.UploadMode {
	case "helper":
		sink = &upload.ExecSink{Helper: cfg.UploadHelper, Endpoint: cfg.UploadEndpoint}
	case "s3":
		s3sink, err := upload.NewS3Sink(ctx, cfg.UploadBucket, cfg.UploadPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure S3 upload sink")
		}
		sink = s3sink
	case "off":
		log.Info().Msg("Uploads disabled")
		return nil
	default:
		log.Fatal().Str("mode", cfg.UploadMode).Msg("Unknown upload mode")
	}

	return &upload.Uploader{
		Sink:           sink,
		MarkSuffix:     cfg.MarkSuffix,
		Retries:        cfg.UploadRetries,
		InitialBackoff: cfg.UploadBackoff,
		MaxDim:         cfg.UploadMaxDim,
	}
}
