// Package classify runs the detection model over a batch of images and
// accumulates per-image verdicts.
package classify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/cam-pipeline/internal/filehandler"
	"github.com/fpang/cam-pipeline/internal/results"
)

// Object is a single detection returned by the classifier.
type Object struct {
	ClassID int     `json:"class_id"`
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
}

// Classifier is the inference boundary. Implementations score one image and
// return the objects detected at or above the given threshold.
type Classifier interface {
	Classify(ctx context.Context, imagePath string, threshold float64) ([]Object, error)
}

// BatchResult accumulates a full classification pass over one batch.
type BatchResult struct {
	Rows         []results.Row
	HasDetection bool
	// Positives lists the image filenames (not paths) that matched the
	// target label. The batch may be relocated before upload, so callers
	// re-anchor these names to the batch's final path.
	Positives []string
}

// Runner applies a Classifier to every image in a batch.
type Runner struct {
	Classifier  Classifier
	TargetLabel string
	Threshold   float64
}

// Run classifies every image in the batch in stable filename order. A
// failure on one image records an ERROR row and continues; a single bad
// image never aborts the batch.
func (r *Runner) Run(ctx context.Context, batchName string, images []filehandler.ImageFile) BatchResult {
	var out BatchResult
	for i, img := range images {
		matched, score, err := r.scoreImage(ctx, img.Path)
		now := time.Now().UTC()
		if err != nil {
			log.Warn().Err(err).Str("image", img.Name).Str("batch", batchName).Msg("Classification failed for image")
			out.Rows = append(out.Rows, results.Row{
				Time: now, Batch: batchName, Image: img.Name, Verdict: results.VerdictError,
			})
			continue
		}

		verdict := results.VerdictNo
		if matched {
			verdict = results.VerdictYes
			out.HasDetection = true
			out.Positives = append(out.Positives, img.Name)
		}
		out.Rows = append(out.Rows, results.Row{
			Time: now, Batch: batchName, Image: img.Name, Verdict: verdict, Confidence: score,
		})

		if (i+1)%20 == 0 || i+1 == len(images) {
			log.Debug().Int("done", i+1).Int("total", len(images)).Str("batch", batchName).Msg("Classification progress")
		}
	}
	return out
}

// scoreImage maps the classifier's object list to the target-label verdict:
// matched if any object carries the target label, with the highest such score.
func (r *Runner) scoreImage(ctx context.Context, path string) (bool, float64, error) {
	objects, err := r.Classifier.Classify(ctx, path, r.Threshold)
	if err != nil {
		return false, 0, err
	}
	matched := false
	maxScore := 0.0
	for _, obj := range objects {
		if obj.Label != r.TargetLabel {
			continue
		}
		matched = true
		if obj.Score > maxScore {
			maxScore = obj.Score
		}
	}
	return matched, maxScore, nil
}
