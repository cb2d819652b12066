package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
)

const (
	// maxWidth bounds the picture sent to the gateway. Fixed policy.
	maxWidth = 1024

	jpegQuality = 80
)

// Compress decodes an image, downscales it to at most maxWidth pixels wide
// preserving the aspect ratio, and re-encodes it as JPEG.
func Compress(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxWidth {
		ratio := float64(maxWidth) / float64(width)
		newHeight := int(math.Round(float64(height) * ratio))
		if newHeight < 1 {
			newHeight = 1
		}

		scaled := image.NewRGBA(image.Rect(0, 0, maxWidth, newHeight))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
	}

	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}
