package imagesrc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/kozaktomas/smartlock-gate/internal/constants"
)

// ResizeImage scales img to fit within maxSize (width or height) while keeping aspect ratio.
// Images already within bounds are returned unchanged.
func ResizeImage(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

// DataURL re-encodes the frame as a JPEG data URL, downscaled to maxSize.
// This is the payload shape the face verification endpoint expects.
func DataURL(b *Bitmap, maxSize int) (string, error) {
	img, _, err := b.Decode()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, ResizeImage(img, maxSize), &jpeg.Options{Quality: constants.FaceJPEGQuality}); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
