// Package detect selects which batch directory, if any, is ready for a
// classification pass.
package detect

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/cam-pipeline/internal/filehandler"
)

// Candidate is a batch directory eligible for processing.
type Candidate struct {
	Path       string
	Name       string
	NewestMod  time.Time // newest image mtime, the batch fingerprint
	ImageCount int
}

// Detector applies the readiness heuristic over a data root.
type Detector struct {
	DataRoot     string
	StableWindow time.Duration // no image younger than this
	MinImages    int
}

// ChooseLatestReady returns the ready batch with the most recent newest-image
// mtime, or nil if no batch qualifies. A batch is ready when it holds at
// least MinImages images and none of them changed within StableWindow.
// The scan is side-effect-free: with no changes on disk, repeated calls
// return the same candidate.
func (d *Detector) ChooseLatestReady() *Candidate {
	entries, err := os.ReadDir(d.DataRoot)
	if err != nil {
		log.Error().Err(err).Str("root", d.DataRoot).Msg("Failed to scan data root")
		return nil
	}

	now := time.Now()
	var best *Candidate

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(d.DataRoot, entry.Name())

		images := filehandler.ListImages(dir)
		if len(images) < d.MinImages {
			log.Debug().Str("batch", entry.Name()).Int("images", len(images)).Msg("Skipping batch: below minimum image count")
			continue
		}

		var newest time.Time
		for _, img := range images {
			if img.ModTime.After(newest) {
				newest = img.ModTime
			}
		}
		if newest.IsZero() {
			continue
		}
		if age := now.Sub(newest); age < d.StableWindow {
			log.Debug().Str("batch", entry.Name()).Dur("age", age).Msg("Skipping batch: not stable yet")
			continue
		}

		// Latest stable batch wins: fresher evidence is processed first and
		// older batches are revisited on later cycles.
		if best == nil || newest.After(best.NewestMod) {
			best = &Candidate{
				Path:       dir,
				Name:       entry.Name(),
				NewestMod:  newest,
				ImageCount: len(images),
			}
		}
	}

	return best
}
