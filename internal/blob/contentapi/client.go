// Package contentapi implements blob.Store against a remote file-content API.
//
// The API exposes GET /contents/{path} returning the base64 content and its
// sha, and PUT /contents/{path} accepting new content plus the sha being
// replaced. 404 means the file does not exist yet; 409 and 422 mean the sha
// is stale.
package contentapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"nomina/internal/blob"
)

// Config holds the remote repository coordinates.
type Config struct {
	BaseURL       string
	Token         string
	Branch        string
	CommitMessage string
	Timeout       time.Duration
}

// Client is a resty-backed implementation of blob.Store.
type Client struct {
	httpClient    *resty.Client
	branch        string
	commitMessage string
}

// NewClient builds a client using the provided configuration values.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if cfg.Token != "" {
		restyClient.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Token))
	}

	msg := cfg.CommitMessage
	if msg == "" {
		msg = "Update ledger document"
	}
	return &Client{httpClient: restyClient, branch: cfg.Branch, commitMessage: msg}
}

type contentResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// apiError represents the error payload returned by the content API.
type apiError struct {
	Message string `json:"message"`
}

func contentPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "contents/" + strings.Join(parts, "/")
}

func (c *Client) Get(ctx context.Context, path string) ([]byte, string, error) {
	result := new(contentResponse)
	apiErr := new(apiError)

	req := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr)
	if c.branch != "" {
		req.SetQueryParam("ref", c.branch)
	}
	resp, err := req.Get(contentPath(path))
	if err != nil {
		return nil, "", fmt.Errorf("get %q: %w", path, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, "", blob.ErrNotFound
	case resp.StatusCode() >= http.StatusBadRequest:
		return nil, "", fmt.Errorf("content api error: code=%d, message=%s", resp.StatusCode(), apiErr.Message)
	}

	if result.Encoding != "" && result.Encoding != "base64" {
		return nil, "", fmt.Errorf("content api returned unsupported encoding %q", result.Encoding)
	}
	raw := strings.NewReplacer("\n", "", "\r", "").Replace(result.Content)
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, "", fmt.Errorf("decode content of %q: %w", path, err)
	}
	return data, result.SHA, nil
}

func (c *Client) Put(ctx context.Context, path string, data []byte, expectedVersion string) (string, error) {
	result := new(putResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(putRequest{
			Message: c.commitMessage,
			Content: base64.StdEncoding.EncodeToString(data),
			Branch:  c.branch,
			SHA:     expectedVersion,
		}).
		SetResult(result).
		SetError(apiErr).
		Put(contentPath(path))
	if err != nil {
		return "", fmt.Errorf("put %q: %w", path, err)
	}

	switch resp.StatusCode() {
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return "", fmt.Errorf("%w: %s", blob.ErrVersionConflict, apiErr.Message)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return "", fmt.Errorf("content api error: code=%d, message=%s", resp.StatusCode(), apiErr.Message)
	}
	return result.Content.SHA, nil
}

// Ping checks that the API answers; a missing document is still healthy.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.httpClient.R().SetContext(ctx).Get("")
	if err != nil {
		return fmt.Errorf("content api unreachable: %w", err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("content api unhealthy: code=%d", resp.StatusCode())
	}
	return nil
}
