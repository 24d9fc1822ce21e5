// Package worker drives the detect → classify → log → route → upload cycle.
//
// The loop is sequential by design: one batch at a time, with the state file
// saved only after a cycle fully completes. A crash mid-cycle therefore
// leaves state pointing at the previous batch, and the interrupted batch is
// reprocessed on restart.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/cam-pipeline/internal/classify"
	"github.com/fpang/cam-pipeline/internal/detect"
	"github.com/fpang/cam-pipeline/internal/filehandler"
	"github.com/fpang/cam-pipeline/internal/results"
	"github.com/fpang/cam-pipeline/internal/route"
	"github.com/fpang/cam-pipeline/internal/state"
	"github.com/fpang/cam-pipeline/internal/upload"
)

// Pipeline wires the worker's collaborators for one data root.
type Pipeline struct {
	Detector *detect.Detector
	Store    *state.Store
	Runner   *classify.Runner
	Log      *results.Log
	Router   *route.Router
	Uploader *upload.Uploader // nil disables uploads
}

// Run polls for ready batches until ctx is cancelled. Each cycle runs to
// completion; cancellation is only observed between cycles.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) {
	log.Info().
		Str("data_root", p.Detector.DataRoot).
		Dur("stable_window", p.Detector.StableWindow).
		Dur("interval", interval).
		Int("min_images", p.Detector.MinImages).
		Msg("Worker started")

	for {
		p.ProcessOnce(ctx)
		select {
		case <-ctx.Done():
			log.Info().Msg("Worker exiting")
			return
		case <-time.After(interval):
		}
	}
}

// Fingerprint converts a batch's newest image mtime into the persisted
// fingerprint: Unix seconds with fractional part.
func Fingerprint(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// ProcessOnce runs at most one full batch cycle and reports whether a batch
// was processed. Re-running against an unchanged data root is a no-op: the
// candidate's name and fingerprint match the stored state and the batch is
// skipped before any log row, move or upload.
func (p *Pipeline) ProcessOnce(ctx context.Context) bool {
	// Cancellation is observed between cycles only: once a batch is picked
	// up, classification and uploads run to completion even if the shutdown
	// signal arrives mid-cycle.
	ctx = context.WithoutCancel(ctx)

	candidate := p.Detector.ChooseLatestReady()
	if candidate == nil {
		log.Debug().Msg("No ready batch to process")
		return false
	}

	fingerprint := Fingerprint(candidate.NewestMod)
	if p.Store.Load().Matches(candidate.Name, fingerprint) {
		log.Debug().Str("batch", candidate.Name).Msg("Batch already processed, skipping")
		return false
	}

	cycle := uuid.NewString()
	images := filehandler.ListImages(candidate.Path)
	log.Info().
		Str("cycle", cycle).
		Str("batch", candidate.Name).
		Int("images", len(images)).
		Dur("newest_age", time.Since(candidate.NewestMod)).
		Msg("Scanning batch")

	result := p.Runner.Run(ctx, candidate.Name, images)

	// The result log is an audit trail, best-effort relative to the
	// pipeline guarantee: a write failure must not stall the batch.
	if err := p.Log.Append(result.Rows); err != nil {
		log.Warn().Err(err).Str("batch", candidate.Name).Msg("Failed to append result rows")
	} else {
		log.Info().Str("cycle", cycle).Int("rows", len(result.Rows)).Msg("Result rows written")
	}

	outcome := state.ResultNoDetection
	if result.HasDetection {
		moved, err := p.Router.MoveToEvents(candidate.Path)
		if err != nil {
			// State stays on the previous batch so this one is retried.
			log.Error().Err(err).Str("batch", candidate.Name).Msg("Failed to route batch")
			return false
		}
		outcome = state.ResultMoved

		if p.Uploader != nil {
			// Positives are re-anchored to the post-move batch path.
			p.Uploader.UploadBatch(ctx, moved, result.Positives)
		}
	} else {
		log.Info().Str("batch", candidate.Name).Msg("No detection, batch left in place")
	}

	p.Store.Save(state.State{Last: candidate.Name, LastMtime: fingerprint, Result: outcome})
	return true
}
