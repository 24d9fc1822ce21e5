// Package upload pushes positively-classified images to a remote sink,
// at most once per image. A zero-byte sidecar mark next to the image is the
// sole record of a completed upload; it survives restarts and batch moves.
package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/fpang/cam-pipeline/internal/filehandler"
)

// Item is one file handed to a sink. Path is the local file to read, which
// may be a temporary rendition; Batch and Name carry the image's logical
// identity so the remote side never sees temp-file names.
type Item struct {
	Path  string
	Batch string
	Name  string
}

// Sink delivers one item to the remote destination.
type Sink interface {
	Upload(ctx context.Context, item Item) error
}

// Uploader wraps a Sink with mark files, bounded retries and an optional
// downscaled rendition step.
type Uploader struct {
	Sink           Sink
	MarkSuffix     string        // appended to the image path to form the mark
	Retries        int           // total sink invocations per image before giving up
	InitialBackoff time.Duration // first retry delay; doubles per attempt
	MaxDim         int           // >0: upload a downscaled JPEG rendition instead
}

// MarkPath returns the sidecar mark path for an image.
func (u *Uploader) MarkPath(imagePath string) string {
	return imagePath + u.MarkSuffix
}

// UploadBatch uploads the named images from batchPath. Images must be
// addressed by their post-move location. A failed image is logged and
// skipped; it never blocks the remaining images or later batches.
func (u *Uploader) UploadBatch(ctx context.Context, batchPath string, names []string) {
	for _, name := range names {
		path := filepath.Join(batchPath, name)
		if err := u.UploadImage(ctx, path); err != nil {
			log.Error().Err(err).Str("image", path).Msg("Upload failed, moving on")
		}
	}
}

// UploadImage uploads one image unless its mark already exists. The mark is
// created after the first successful sink invocation; a mark-write failure
// is logged but does not undo the upload (the worst case is one harmless
// re-upload on a later pass).
func (u *Uploader) UploadImage(ctx context.Context, imagePath string) error {
	mark := u.MarkPath(imagePath)
	if _, err := os.Stat(mark); err == nil {
		log.Debug().Str("image", imagePath).Msg("Upload mark present, skipping")
		return nil
	}

	item, cleanup, err := u.prepare(imagePath)
	if err != nil {
		return err
	}
	defer cleanup()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = u.InitialBackoff

	retries := u.Retries
	if retries < 1 {
		retries = 1
	}

	attempt := 0
	operation := func() error {
		attempt++
		if err := u.Sink.Upload(ctx, item); err != nil {
			log.Warn().Err(err).Str("image", imagePath).Int("attempt", attempt).Msg("Upload attempt failed")
			return err
		}
		return nil
	}

	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries-1)), ctx))
	if err != nil {
		return fmt.Errorf("upload failed after %d attempts: %w", attempt, err)
	}

	if err := os.WriteFile(mark, nil, 0o644); err != nil {
		log.Warn().Err(err).Str("mark", mark).Msg("Uploaded but failed to write mark file")
	}
	log.Info().Str("image", imagePath).Int("attempts", attempt).Msg("Image uploaded")
	return nil
}

// prepare builds the sink item for an image: the original file, or a
// temporary downscaled rendition when MaxDim is set. The item keeps the
// image's batch and filename either way (a rendition only swaps the
// extension), so the remote identity never depends on temp paths.
// Rendition failures fall back to the original so a bad decode cannot
// block the upload.
func (u *Uploader) prepare(imagePath string) (Item, func(), error) {
	item := Item{
		Path:  imagePath,
		Batch: filepath.Base(filepath.Dir(imagePath)),
		Name:  filepath.Base(imagePath),
	}
	if u.MaxDim <= 0 {
		return item, func() {}, nil
	}

	tmpDir, err := os.MkdirTemp("", "rendition-")
	if err != nil {
		return Item{}, nil, fmt.Errorf("create rendition dir: %w", err)
	}

	renditionName := strings.TrimSuffix(item.Name, filepath.Ext(item.Name)) + ".jpg"
	renditionPath := filepath.Join(tmpDir, renditionName)

	if err := filehandler.Downscale(imagePath, renditionPath, u.MaxDim); err != nil {
		log.Warn().Err(err).Str("image", imagePath).Msg("Rendition failed, uploading original")
		os.RemoveAll(tmpDir)
		return item, func() {}, nil
	}

	item.Path = renditionPath
	item.Name = renditionName
	return item, func() { os.RemoveAll(tmpDir) }, nil
}
