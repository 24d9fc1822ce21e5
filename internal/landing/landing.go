// Package landing turns uploaded camera archives into published batch
// directories. An archive either becomes a fully extracted batch under the
// processed root or is discarded as a duplicate; a half-extracted batch is
// never visible to downstream scanners.
package landing

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
// The camera side bundles sessions with zstd-compressed entries, so the
// receiver registers a matching decompressor.
const zipMethodZstd uint16 = 93

// tmpDirPrefix marks in-progress extraction directories under the processed
// root. The prefix keeps them hidden from batch scanners until the final
// rename, and lets SweepOrphans recognise leftovers from a crashed run.
const tmpDirPrefix = ".extract-"

func init() {
	zip.RegisterDecompressor(zipMethodZstd, func(r io.Reader) io.ReadCloser {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return io.NopCloser(&errReader{err: err})
		}
		return zr.IOReadCloser()
	})
}

// errReader surfaces a decompressor construction failure on first read.
type errReader struct{ err error }

func (r *errReader) Read([]byte) (int, error) { return 0, r.err }

// Receiver scans an incoming directory for completed archives and publishes
// them as batch directories under the processed root.
type Receiver struct {
	IncomingDir  string
	ProcessedDir string
	QuietPeriod  time.Duration
}

// Run scans the incoming directory every interval until ctx is cancelled.
// Each archive is processed to completion; cancellation is only observed
// between scans.
func (r *Receiver) Run(ctx context.Context, interval time.Duration) {
	r.SweepOrphans()
	log.Info().
		Str("incoming", r.IncomingDir).
		Str("processed", r.ProcessedDir).
		Dur("quiet_period", r.QuietPeriod).
		Dur("interval", interval).
		Msg("Receiver started")

	for {
		r.ScanOnce()
		select {
		case <-ctx.Done():
			log.Info().Msg("Receiver exiting")
			return
		case <-time.After(interval):
		}
	}
}

// ScanOnce processes every archive in the incoming directory that has been
// quiet for at least QuietPeriod. A failure on one archive never aborts the
// scan; corrupt archives are left in place for manual inspection.
func (r *Receiver) ScanOnce() {
	entries, err := os.ReadDir(r.IncomingDir)
	if err != nil {
		log.Error().Err(err).Str("dir", r.IncomingDir).Msg("Failed to scan incoming directory")
		return
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".zip") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Raced with a concurrent rename or delete; pick it up next scan.
			continue
		}
		if now.Sub(info.ModTime()) < r.QuietPeriod {
			log.Debug().Str("archive", entry.Name()).Msg("Archive still settling, skipping")
			continue
		}

		archivePath := filepath.Join(r.IncomingDir, entry.Name())
		if err := ProcessArchive(archivePath, r.ProcessedDir); err != nil {
			log.Error().Err(err).Str("archive", archivePath).Msg("Failed to process archive")
		}
	}
}

// SweepOrphans removes extraction temp directories left behind by a crash
// mid-publish. Their archives are still in the incoming directory and will
// be re-extracted from scratch.
func (r *Receiver) SweepOrphans() {
	entries, err := os.ReadDir(r.ProcessedDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), tmpDirPrefix) {
			orphan := filepath.Join(r.ProcessedDir, entry.Name())
			if err := os.RemoveAll(orphan); err != nil {
				log.Warn().Err(err).Str("dir", orphan).Msg("Failed to remove orphaned extraction dir")
				continue
			}
			log.Info().Str("dir", orphan).Msg("Removed orphaned extraction dir")
		}
	}
}

// BatchName derives the batch directory name from an archive path:
// "session-20240801-153000.zip" publishes as "session-20240801-153000".
func BatchName(archivePath string) string {
	return strings.TrimSuffix(filepath.Base(archivePath), ".zip")
}

// ProcessArchive extracts one archive into a batch directory under
// processedRoot and deletes the archive. If the batch directory already
// exists the archive is deleted as a re-delivered duplicate. On any error
// the archive is left untouched and no partial batch is published.
func ProcessArchive(archivePath, processedRoot string) error {
	finalDir := filepath.Join(processedRoot, BatchName(archivePath))

	if _, err := os.Stat(finalDir); err == nil {
		if err := os.Remove(archivePath); err != nil {
			return fmt.Errorf("remove duplicate archive: %w", err)
		}
		log.Info().Str("archive", archivePath).Str("batch", finalDir).Msg("Already processed, removed duplicate archive")
		return nil
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	// Verify every entry before anything is written: CRC scan first, then
	// path containment. A corrupt or unsafe archive stays in the incoming
	// directory for manual inspection.
	if err := verifyArchive(&reader.Reader); err != nil {
		return fmt.Errorf("verify archive: %w", err)
	}

	// Extract on the destination volume, then publish with a single rename
	// so scanners only ever see a complete batch.
	tmpDir := filepath.Join(processedRoot, tmpDirPrefix+uuid.NewString())
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("create extraction dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := extractAll(&reader.Reader, tmpDir); err != nil {
		return fmt.Errorf("extract archive: %w", err)
	}

	if err := os.Rename(tmpDir, finalDir); err != nil {
		return fmt.Errorf("publish batch: %w", err)
	}

	if err := os.Remove(archivePath); err != nil {
		log.Warn().Err(err).Str("archive", archivePath).Msg("Batch published but archive removal failed")
	}
	log.Info().Str("archive", filepath.Base(archivePath)).Str("batch", finalDir).Msg("Extracted archive")
	return nil
}

// verifyArchive checks archive integrity and entry-path safety without
// writing anything. Every entry is read through to force a CRC check, and
// every entry's resolved target must stay inside a hypothetical destination
// directory (zip-slip defense).
func verifyArchive(r *zip.Reader) error {
	for _, f := range r.File {
		if !entryPathSafe(f.Name) {
			return fmt.Errorf("unsafe path in archive: %q", f.Name)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("corrupted entry %q: %w", f.Name, err)
		}
		// io.Copy drains the entry; the zip reader validates the CRC on EOF.
		if _, err := io.Copy(io.Discard, rc); err != nil {
			rc.Close()
			return fmt.Errorf("corrupted entry %q: %w", f.Name, err)
		}
		rc.Close()
	}
	return nil
}

// entryPathSafe reports whether name, joined under a destination directory,
// resolves to a path inside that directory (or the directory itself).
func entryPathSafe(name string) bool {
	if filepath.IsAbs(name) {
		return false
	}
	const dest = string(os.PathSeparator) + "dest"
	target := filepath.Join(dest, name)
	return target == dest || strings.HasPrefix(target, dest+string(os.PathSeparator))
}

// extractAll writes every archive entry under destDir, preserving the
// entry hierarchy. Callers must have validated entry paths already.
func extractAll(r *zip.Reader, destDir string) error {
	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %q: %w", f.Name, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent of %q: %w", f.Name, err)
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open entry %q: %w", f.Name, err)
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			rc.Close()
			return fmt.Errorf("create %q: %w", f.Name, err)
		}
		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			rc.Close()
			return fmt.Errorf("write %q: %w", f.Name, err)
		}
		if err := out.Close(); err != nil {
			rc.Close()
			return fmt.Errorf("close %q: %w", f.Name, err)
		}
		rc.Close()

		if mod := f.Modified; !mod.IsZero() {
			// Preserve capture-time ordering for the readiness detector.
			if err := os.Chtimes(target, mod, mod); err != nil {
				log.Debug().Err(err).Str("file", target).Msg("Failed to restore entry mtime")
			}
		}
	}
	return nil
}
