// Package processor bounds upload payloads before submission: oversized
// images are downscaled and everything is recompressed as JPEG.
package processor

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/Sharan9277/ai-studio/internal/domain"
)

const (
	// DefaultMaxDim is the default bound on either image dimension.
	DefaultMaxDim = 1024
	// DefaultQuality is the default JPEG recompression quality.
	DefaultQuality = 80
)

// Preprocess decodes data, downscales it to fit within maxDim×maxDim when
// larger (preserving aspect ratio, never upscaling) and re-encodes it as
// JPEG at the given quality. Undecodable input yields a ValidationError.
func Preprocess(data []byte, maxDim, quality int) ([]byte, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDim
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.ValidationError{Field: "imageData", Reason: fmt.Sprintf("undecodable image: %v", err)}
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDim || bounds.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
