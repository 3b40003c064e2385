package api

import (
	"net/http"
	"time"
)

const defaultAPIVersion = "2023-06-01"

// Client is a minimal Anthropic Messages API client. Only the pieces the
// chat engine needs are implemented: single-shot and streamed messages.
type Client struct {
	httpClient *http.Client
	apiKey     string
	APIVersion string
	BaseURL    string
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		c.APIVersion = version
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func NewClient(apiKey string, baseURL string, options ...ClientOption) *Client {
	ret := &Client{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		BaseURL:    baseURL,
		APIVersion: defaultAPIVersion,
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", c.APIVersion)
	req.Header.Set("Content-Type", "application/json")
}
