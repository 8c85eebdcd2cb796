package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// response is a raw HTTP exchange result.
type response struct {
	status int
	body   []byte
}

// doRequest sends a request with an optional JSON body and reads the whole response.
// Only transport failures are returned as errors; status handling is up to the caller.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, requestBody any) (*response, error) {
	url := c.resolveURL(endpoint)

	var bodyReader io.Reader
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.AddCookie(&http.Cookie{Name: "access_token_cookie", Value: c.accessToken})
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL constructed from validated parsedURL via resolveURL
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w: %w", ErrNetwork, err)
	}

	c.captureResponse(endpoint, body)

	return &response{status: resp.StatusCode, body: body}, nil
}

// doRequestJSON performs a request and unmarshals the JSON response into T.
// Statuses outside expectedStatuses become a *StatusError unwrapping to ErrNetwork.
func doRequestJSON[T any](ctx context.Context, c *Client, method, endpoint string, requestBody any, expectedStatuses ...int) (*T, error) {
	resp, err := c.doRequest(ctx, method, endpoint, requestBody)
	if err != nil {
		return nil, err
	}
	if !isExpectedStatus(resp.status, expectedStatuses) {
		return nil, newStatusError(endpoint, resp, ErrNetwork)
	}
	return decodeJSON[T](resp.body)
}

// doGetJSON performs a GET request and unmarshals the JSON response.
func doGetJSON[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	return doRequestJSON[T](ctx, c, http.MethodGet, endpoint, nil, http.StatusOK)
}

func decodeJSON[T any](body []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w: %w", ErrMalformedResponse, err)
	}
	return &result, nil
}

func newStatusError(endpoint string, resp *response, kind error) *StatusError {
	return &StatusError{
		Endpoint: endpoint,
		Code:     resp.status,
		Body:     readErrorBody(bytes.NewReader(resp.body)),
		kind:     kind,
	}
}

// isExpectedStatus checks if a status code is in the list of expected statuses.
func isExpectedStatus(code int, expected []int) bool {
	return slices.Contains(expected, code)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
