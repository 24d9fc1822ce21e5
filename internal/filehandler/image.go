// Package filehandler knows which files in a batch directory are camera
// images and how to list them with the timestamps the pipeline keys on.
package filehandler

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// SupportedImageExtensions defines the file extensions the camera produces.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// IsImage reports whether ext (lowercase, including the dot) is a supported
// image extension.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[ext]
	return ok
}

// ImageFile is one camera image inside a batch directory.
type ImageFile struct {
	Path    string
	Name    string
	ModTime time.Time
	Size    int64
}

// ListImages returns the images directly inside dir, sorted by filename.
// A missing directory yields an empty list, not an error: batches are moved
// out from under the scanner and that must look like "nothing here".
// Unreadable entries are logged and skipped.
func ListImages(dir string) []ImageFile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("dir", dir).Msg("Failed to read batch directory")
		}
		return nil
	}

	var images []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !IsImage(strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Raced with a concurrent move or delete; skip.
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to stat image, skipping")
			continue
		}
		images = append(images, ImageFile{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })
	return images
}

// NewestModTime returns the most recent image modification time in dir,
// or the zero time if dir contains no images.
func NewestModTime(dir string) time.Time {
	var newest time.Time
	for _, img := range ListImages(dir) {
		if img.ModTime.After(newest) {
			newest = img.ModTime
		}
	}
	return newest
}
