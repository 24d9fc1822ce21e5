// Package route relocates batches that produced detections into the events
// root. Batches without detections stay where they were scanned.
package route

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Router moves event batches out of the data root.
type Router struct {
	EventsRoot string
}

// MoveToEvents moves the batch directory into the events root and returns
// its new path. The move is a rename: same directory, same files. On a name
// collision the destination is disambiguated with a timestamp suffix; an
// existing batch is never overwritten.
func (r *Router) MoveToEvents(batchPath string) (string, error) {
	if err := os.MkdirAll(r.EventsRoot, 0o755); err != nil {
		return "", fmt.Errorf("create events root: %w", err)
	}

	name := filepath.Base(batchPath)
	target := filepath.Join(r.EventsRoot, name)
	if _, err := os.Stat(target); err == nil {
		stamp := time.Now().Format("20060102-150405")
		target = filepath.Join(r.EventsRoot, fmt.Sprintf("%s__moved_%s", name, stamp))
	}

	if err := os.Rename(batchPath, target); err != nil {
		return "", fmt.Errorf("move batch to events root: %w", err)
	}

	log.Info().Str("batch", name).Str("target", target).Msg("Batch moved to events root")
	return target, nil
}
