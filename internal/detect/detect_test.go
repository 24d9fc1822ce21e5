package detect

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// makeBatch creates a batch directory with images whose mtimes are set to
// the given ages before now.
func makeBatch(t *testing.T, root, name string, ages ...time.Duration) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i, age := range ages {
		path := filepath.Join(dir, "img_"+string(rune('a'+i))+".jpg")
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		mtime := time.Now().Add(-age)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestChooseLatestReadyNone(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, root string)
	}{
		{
			name:  "empty root",
			setup: func(t *testing.T, root string) {},
		},
		{
			name: "below minimum image count",
			setup: func(t *testing.T, root string) {
				makeBatch(t, root, "b1", time.Hour)
			},
		},
		{
			name: "not yet stable",
			setup: func(t *testing.T, root string) {
				makeBatch(t, root, "b1", time.Hour, 0)
			},
		},
		{
			name: "no images at all",
			setup: func(t *testing.T, root string) {
				dir := filepath.Join(root, "b1")
				os.MkdirAll(dir, 0o755)
				os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
				os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644)
			},
		},
		{
			name: "hidden directory ignored",
			setup: func(t *testing.T, root string) {
				makeBatch(t, root, ".extract-tmp", time.Hour, time.Hour)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			tt.setup(t, root)
			d := &Detector{DataRoot: root, StableWindow: time.Minute, MinImages: 2}
			if got := d.ChooseLatestReady(); got != nil {
				t.Errorf("ChooseLatestReady() = %+v, want nil", got)
			}
		})
	}
}

func TestChooseLatestReadyPicksLatest(t *testing.T) {
	root := t.TempDir()
	makeBatch(t, root, "older", 3*time.Hour, 2*time.Hour)
	makeBatch(t, root, "newer", 3*time.Hour, time.Hour)

	d := &Detector{DataRoot: root, StableWindow: time.Minute, MinImages: 1}
	got := d.ChooseLatestReady()
	if got == nil {
		t.Fatal("ChooseLatestReady() = nil, want the newer batch")
	}
	if got.Name != "newer" {
		t.Errorf("ChooseLatestReady().Name = %q, want %q", got.Name, "newer")
	}
	if got.ImageCount != 2 {
		t.Errorf("ChooseLatestReady().ImageCount = %d, want 2", got.ImageCount)
	}
}

func TestChooseLatestReadySkipsUnstableCompetitor(t *testing.T) {
	root := t.TempDir()
	makeBatch(t, root, "stable", 2*time.Hour)
	// Fresher but still being written: must not win, must not block "stable".
	makeBatch(t, root, "busy", 0)

	d := &Detector{DataRoot: root, StableWindow: time.Minute, MinImages: 1}
	got := d.ChooseLatestReady()
	if got == nil || got.Name != "stable" {
		t.Fatalf("ChooseLatestReady() = %+v, want the stable batch", got)
	}
}

func TestChooseLatestReadyIdempotent(t *testing.T) {
	root := t.TempDir()
	makeBatch(t, root, "b1", 2*time.Hour, time.Hour)

	d := &Detector{DataRoot: root, StableWindow: time.Minute, MinImages: 1}
	first := d.ChooseLatestReady()
	second := d.ChooseLatestReady()
	if first == nil || second == nil {
		t.Fatal("expected a candidate on both calls")
	}
	if first.Name != second.Name || !first.NewestMod.Equal(second.NewestMod) {
		t.Errorf("repeated scans disagree: %+v vs %+v", first, second)
	}
}
