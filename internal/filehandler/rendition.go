package filehandler

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// renditionJPEGQuality balances preview fidelity against upload size over
// the cellular backhaul.
const renditionJPEGQuality = 85

// Downscale decodes the image at path and writes a JPEG rendition whose
// longest side is at most maxDim pixels to dstPath. Images already within
// maxDim are re-encoded without scaling so the output format is uniform.
func Downscale(path, dstPath string, maxDim int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, format, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	scaled := src
	if width > maxDim || height > maxDim {
		newW, newH := width, height
		if width >= height {
			newW = maxDim
			newH = height * maxDim / width
		} else {
			newH = maxDim
			newW = width * maxDim / height
		}
		if newW < 1 {
			newW = 1
		}
		if newH < 1 {
			newH = 1
		}

		dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		scaled = dst
	}

	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create rendition: %w", err)
	}

	if err := jpeg.Encode(out, scaled, &jpeg.Options{Quality: renditionJPEGQuality}); err != nil {
		out.Close()
		os.Remove(dstPath)
		return fmt.Errorf("encode rendition: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("close rendition: %w", err)
	}

	log.Debug().
		Str("src", path).
		Str("format", format).
		Int("width", width).
		Int("height", height).
		Int("max_dim", maxDim).
		Msg("Rendition written")

	return nil
}
