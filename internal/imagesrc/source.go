package imagesrc

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kozaktomas/smartlock-gate/internal/constants"
)

// Source produces a single still frame on demand.
type Source interface {
	Capture(ctx context.Context) (*Bitmap, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (*Bitmap, error)

// Capture calls f(ctx).
func (f SourceFunc) Capture(ctx context.Context) (*Bitmap, error) {
	return f(ctx)
}

// FileSource reads a still image from disk.
type FileSource struct {
	Path string
}

// Capture reads the whole file.
func (s FileSource) Capture(ctx context.Context) (*Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w: %w", s.Path, ErrNoImage, err)
	}
	return NewBitmap(data, s.Path)
}

// UploadSource wraps an image uploaded by the operator.
type UploadSource struct {
	Data []byte
	Name string
}

// Capture returns the uploaded bytes as a Bitmap.
func (s UploadSource) Capture(_ context.Context) (*Bitmap, error) {
	name := s.Name
	if name == "" {
		name = "upload"
	}
	return NewBitmap(s.Data, name)
}

// DataURLSource decodes a browser screenshot of the form
// "data:image/png;base64,....". A bare base64 payload is accepted as well.
type DataURLSource struct {
	URL string
}

// Capture decodes the base64 payload.
func (s DataURLSource) Capture(_ context.Context) (*Bitmap, error) {
	payload := strings.TrimSpace(s.URL)
	if payload == "" {
		return nil, fmt.Errorf("data url: %w", ErrNoImage)
	}
	if strings.HasPrefix(payload, "data:") {
		_, after, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, fmt.Errorf("data url without payload: %w", ErrNoImage)
		}
		payload = after
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("data url: %w: %w", ErrNoImage, err)
	}
	return NewBitmap(data, "data-url")
}

// CameraSource grabs a still frame from an IP camera snapshot endpoint.
type CameraSource struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

// NewCameraSource creates a camera source for the given snapshot URL.
func NewCameraSource(url string, timeout time.Duration) *CameraSource {
	return &CameraSource{URL: url, Timeout: timeout, Client: http.DefaultClient}
}

// Capture requests one frame from the camera.
func (c *CameraSource) Capture(ctx context.Context) (*Bitmap, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("camera not configured: %w", ErrNoImage)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create camera request: %w", err)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req) //nolint:gosec // URL comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("camera unavailable: %w: %w", ErrNoImage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera returned status %d: %w", resp.StatusCode, ErrNoImage)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("could not read camera frame: %w: %w", ErrNoImage, err)
	}
	return NewBitmap(data, "camera")
}
