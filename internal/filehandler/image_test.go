package filehandler

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsImage(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{".jpg", true},
		{".jpeg", true},
		{".png", true},
		{".txt", false},
		{".mp4", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsImage(tt.ext); got != tt.want {
			t.Errorf("IsImage(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.png", "notes.txt", "c.jpeg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	images := ListImages(dir)
	want := []string{"a.png", "b.jpg", "c.jpeg"}
	if len(images) != len(want) {
		t.Fatalf("ListImages returned %d entries, want %d", len(images), len(want))
	}
	for i, name := range want {
		if images[i].Name != name {
			t.Errorf("images[%d].Name = %q, want %q (sorted by filename)", i, images[i].Name, name)
		}
	}
}

func TestListImagesMissingDir(t *testing.T) {
	if images := ListImages(filepath.Join(t.TempDir(), "gone")); images != nil {
		t.Errorf("ListImages on missing dir = %v, want nil", images)
	}
}

func TestNewestModTime(t *testing.T) {
	dir := t.TempDir()
	times := map[string]time.Duration{
		"a.jpg": 3 * time.Hour,
		"b.jpg": time.Hour,
		"c.jpg": 2 * time.Hour,
	}
	var newest time.Time
	for name, age := range times {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		mtime := time.Now().Add(-age)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
		if mtime.After(newest) {
			newest = mtime
		}
	}

	got := NewestModTime(dir)
	if got.Sub(newest).Abs() > time.Second {
		t.Errorf("NewestModTime() = %v, want ~%v", got, newest)
	}

	if !NewestModTime(t.TempDir()).IsZero() {
		t.Error("NewestModTime on empty dir should be zero")
	}
}

func TestDownscale(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wide.png")

	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 32, 16))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	dst := filepath.Join(dir, "wide.thumb.jpg")
	if err := Downscale(src, dst, 8); err != nil {
		t.Fatalf("Downscale: %v", err)
	}

	out, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()
	img, err := jpeg.Decode(out)
	if err != nil {
		t.Fatalf("rendition is not a valid JPEG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 8 || bounds.Dy() != 4 {
		t.Errorf("rendition bounds = %dx%d, want 8x4 (aspect preserved)", bounds.Dx(), bounds.Dy())
	}
}

func TestDownscaleRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(src, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Downscale(src, filepath.Join(dir, "out.jpg"), 8); err == nil {
		t.Error("Downscale should fail on undecodable input")
	}
}
