package adminsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// url builds a complete URL by appending the path and query to the base URL.
func (c *SDKClient) url(path string, query url.Values) string {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// send performs one HTTP attempt for req and returns the status and body.
// A non-nil error means no usable response was received.
// An empty token sends the request unauthenticated.
func (c *SDKClient) send(ctx context.Context, req Request, token string) (int, []byte, error) {
	var body io.Reader
	if req.payload != nil {
		body = bytes.NewReader(req.payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Path, req.Query), body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set custom headers
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.requestID != "" {
		httpReq.Header.Set("X-Request-ID", req.requestID.String())
	}
	if c.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}

	// Set Authorization header
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	// Read body once for both error parsing and success decoding
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, bodyBytes, nil
}

// decodeBody decodes a successful JSON response into target.
// A nil target or an empty body is not an error.
func decodeBody(body []byte, target any) error {
	if target == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
