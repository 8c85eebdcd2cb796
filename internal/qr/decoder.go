// Package qr extracts access tokens from captured frames.
// Decoding is local and attempted once per frame.
package qr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/kozaktomas/smartlock-gate/internal/imagesrc"
)

var (
	// ErrNotFound means the frame was readable but held no QR code.
	ErrNotFound = errors.New("no QR code found")

	// ErrDecode means the frame could not be loaded or the symbol was unreadable.
	ErrDecode = errors.New("QR decode failed")
)

// Decoder reads QR codes from bitmaps.
type Decoder struct {
	tryHarder bool
}

// NewDecoder creates a decoder. tryHarder trades speed for accuracy on
// low-contrast camera frames.
func NewDecoder(tryHarder bool) *Decoder {
	return &Decoder{tryHarder: tryHarder}
}

// Decode returns the token encoded in the frame.
func (d *Decoder) Decode(b *imagesrc.Bitmap) (string, error) {
	if b == nil {
		return "", fmt.Errorf("%w: nil bitmap", ErrDecode)
	}

	img, _, err := b.Decode()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}

	var hints map[gozxing.DecodeHintType]any
	if d.tryHarder {
		hints = map[gozxing.DecodeHintType]any{gozxing.DecodeHintType_TRY_HARDER: true}
	}

	// A fresh reader per frame; QRCodeReader keeps decoding state.
	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		var notFound gozxing.NotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}

	token := strings.TrimSpace(result.GetText())
	if token == "" {
		return "", fmt.Errorf("%w: empty payload", ErrNotFound)
	}
	return token, nil
}
