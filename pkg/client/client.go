// Package client is the caller-side request collaborator for the procurement API.
// It speaks the response envelope and turns failures back into apperror kinds.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"procurement/pkg/apperror"
)

const defaultTimeout = 30 * time.Second

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Kind       string          `json:"kind"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends the bearer token on every call
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends body as JSON and decodes the envelope's data into out when out is non-nil.
// API failures come back as *apperror.Error of the reported kind; transport and
// decoding failures are UPSTREAM.
func (c *Client) Call(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apperror.Validation("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return apperror.Upstream(err, "failed to build %s %s", method, endpoint)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.Upstream(err, "%s %s failed", method, endpoint)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.Upstream(err, "failed to read %s %s response", method, endpoint)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		e := apperror.Upstream(err, "unexpected %d response from %s %s", resp.StatusCode, method, endpoint)
		e.StatusCode = resp.StatusCode
		return e
	}

	if env.Status != "success" || resp.StatusCode >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("%s %s returned %d", method, endpoint, resp.StatusCode)
		}
		return apperror.FromStatus(env.Kind, msg, resp.StatusCode)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperror.Upstream(err, "failed to decode %s %s payload", method, endpoint)
	}
	return nil
}
