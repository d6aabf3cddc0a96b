package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mat-kinh-affiliate/internal/config"
	"mat-kinh-affiliate/internal/domain"
)

// errUnauthorized is internal to this package: it marks a 401 so the gateway
// can apply its single forced-refresh retry. It never escapes to callers.
var errUnauthorized = errors.New("pos: credential rejected")

// Client is the low-level HTTP transport for the POS API. It knows headers,
// JSON codec and the error taxonomy; it knows nothing about credentials or
// retries.
type Client struct {
	baseURL  string
	retailer string
	http     *http.Client
}

func NewClient(cfg config.POSConfig) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		retailer: cfg.Retailer,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

type remoteErrorBody struct {
	ResponseStatus struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	} `json:"responseStatus"`
}

// do executes one request with the given bearer token. Extra headers may be
// nil. out may be nil for calls whose body is irrelevant.
func (c *Client) do(ctx context.Context, method, path, token string, extra http.Header, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &domain.TransportError{Op: path, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if c.retailer != "" {
		req.Header.Set("Retailer", c.retailer)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.TransportError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransportError{Op: path, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errUnauthorized
	case resp.StatusCode >= 400:
		var reb remoteErrorBody
		_ = json.Unmarshal(raw, &reb)
		code := reb.ResponseStatus.ErrorCode
		if code == "" && resp.StatusCode == http.StatusForbidden {
			code = "forbidden"
		}
		return &domain.RemoteError{Status: resp.StatusCode, Code: code, Message: reb.ResponseStatus.Message}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &domain.TransportError{Op: path, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
