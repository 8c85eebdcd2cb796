package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	endpointQRVerify   = "auth/qr/verify"
	endpointFaceVerify = "auth/face/verify"
)

// VerifyQRToken asks the backend which identity a token is bound to.
// Any non-success status is a rejection; validity policy (expiry, single use)
// belongs to the backend.
func (c *Client) VerifyQRToken(ctx context.Context, token string) (*QRVerifyResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, endpointQRVerify, QRVerifyRequest{Token: token})
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.status) {
		return nil, newStatusError(endpointQRVerify, resp, ErrRejected)
	}

	result, err := decodeJSON[QRVerifyResponse](resp.body)
	if err != nil {
		return nil, err
	}
	result.User = strings.TrimSpace(result.User)
	if result.User == "" {
		return nil, fmt.Errorf("%s: %w: no user in response", endpointQRVerify, ErrMalformedResponse)
	}
	return result, nil
}

// VerifyFace sends a face frame (base64 data URL) for the given identity.
// A denial is returned as a response with Success=false, not as an error.
// The backend answers a mismatch with 401 and a decision body, so 401/403
// bodies carrying a decision are treated as answers too.
func (c *Client) VerifyFace(ctx context.Context, email, imageDataURL string) (*FaceVerifyResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, endpointFaceVerify, FaceVerifyRequest{Email: email, Image: imageDataURL})
	if err != nil {
		return nil, err
	}

	switch {
	case isSuccess(resp.status):
		result, err := decodeJSON[FaceVerifyResponse](resp.body)
		if err != nil {
			return nil, err
		}
		if result.Success == nil {
			return nil, fmt.Errorf("%s: %w: no decision in response", endpointFaceVerify, ErrMalformedResponse)
		}
		return result, nil
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		result, err := decodeJSON[FaceVerifyResponse](resp.body)
		if err == nil && result.Success != nil {
			return result, nil
		}
		return nil, newStatusError(endpointFaceVerify, resp, ErrNetwork)
	default:
		return nil, newStatusError(endpointFaceVerify, resp, ErrNetwork)
	}
}
