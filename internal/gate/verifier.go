package gate

import (
	"context"
	"time"

	"github.com/kozaktomas/smartlock-gate/internal/backend"
	"github.com/kozaktomas/smartlock-gate/internal/constants"
	"github.com/kozaktomas/smartlock-gate/internal/imagesrc"
	"github.com/kozaktomas/smartlock-gate/internal/metrics"
)

// QRDecoder extracts a token from a captured bitmap.
type QRDecoder interface {
	Decode(b *imagesrc.Bitmap) (string, error)
}

// TokenOutcome is the result of a token verification.
type TokenOutcome struct {
	Granted  bool
	Identity string
	Detail   string
}

// FaceOutcome is the result of a face verification.
type FaceOutcome struct {
	Granted    bool
	Similarity *float64
	Detail     string
}

// TokenVerifier resolves a QR token to the identity it is bound to.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (TokenOutcome, error)
}

// FaceVerifier checks a face capture against an identity.
type FaceVerifier interface {
	VerifyFace(ctx context.Context, identity string, face *imagesrc.Bitmap) (FaceOutcome, error)
}

// BackendVerifier implements TokenVerifier and FaceVerifier on top of the
// verification backend.
type BackendVerifier struct {
	client      *backend.Client
	maxFaceSize int
	metrics     metrics.Recorder
}

// NewBackendVerifier creates a verifier. Face frames are downscaled to
// maxFaceSize pixels on the longer side before upload.
func NewBackendVerifier(client *backend.Client, maxFaceSize int, rec metrics.Recorder) *BackendVerifier {
	if maxFaceSize <= 0 {
		maxFaceSize = constants.MaxImageSize
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &BackendVerifier{client: client, maxFaceSize: maxFaceSize, metrics: rec}
}

func (v *BackendVerifier) VerifyToken(ctx context.Context, token string) (TokenOutcome, error) {
	start := time.Now()
	resp, err := v.client.VerifyQRToken(ctx, token)
	v.metrics.RecordBackendCall("qr_verify", time.Since(start), err)
	if err != nil {
		return TokenOutcome{}, err
	}
	return TokenOutcome{Granted: true, Identity: resp.User, Detail: resp.Message}, nil
}

func (v *BackendVerifier) VerifyFace(ctx context.Context, identity string, face *imagesrc.Bitmap) (FaceOutcome, error) {
	image, err := imagesrc.DataURL(face, v.maxFaceSize)
	if err != nil {
		return FaceOutcome{}, err
	}

	start := time.Now()
	resp, err := v.client.VerifyFace(ctx, identity, image)
	v.metrics.RecordBackendCall("face_verify", time.Since(start), err)
	if err != nil {
		return FaceOutcome{}, err
	}
	return FaceOutcome{Granted: resp.Granted(), Similarity: resp.Similarity, Detail: resp.Message}, nil
}
