// Package imagesrc supplies still frames for the gate: camera snapshots,
// uploaded files and browser data URLs all end up as a Bitmap.
package imagesrc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrNoImage is returned when the capture device or file yields nothing.
	ErrNoImage = errors.New("no image available")

	// ErrUnsupportedImage is returned when the captured bytes are not a readable image.
	ErrUnsupportedImage = errors.New("image could not be decoded")
)

// Bitmap is an opaque captured frame. The bytes are kept as captured;
// decoding happens only when a consumer asks for pixels.
type Bitmap struct {
	data        []byte
	contentType string
	origin      string
	capturedAt  time.Time
}

// NewBitmap wraps captured bytes. Empty input is reported as ErrNoImage.
func NewBitmap(data []byte, origin string) (*Bitmap, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", origin, ErrNoImage)
	}
	return &Bitmap{
		data:        data,
		contentType: http.DetectContentType(data),
		origin:      origin,
		capturedAt:  time.Now(),
	}, nil
}

// Bytes returns the raw captured bytes.
func (b *Bitmap) Bytes() []byte {
	return b.data
}

// ContentType returns the sniffed MIME type of the captured bytes.
func (b *Bitmap) ContentType() string {
	return b.contentType
}

// Origin describes where the frame came from ("camera", "upload", a file path).
func (b *Bitmap) Origin() string {
	return b.origin
}

// CapturedAt returns when the frame was taken.
func (b *Bitmap) CapturedAt() time.Time {
	return b.capturedAt
}

// Decode parses the captured bytes into pixels.
func (b *Bitmap) Decode() (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(b.data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
	}
	return img, format, nil
}
