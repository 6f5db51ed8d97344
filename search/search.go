// Package search wraps the lesson search endpoint. One query, one GET.
package search

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mzalendo/lingopref/client"
)

// QueryPlaceholder marks where the encoded query lands in the URL template.
const QueryPlaceholder = "{query}"

var ErrMissingPlaceholder = errors.New("search url template has no query placeholder")

// Error carries the raw error payload the search endpoint responded with.
// It is passed through unmodified, no local interpretation happens here.
type Error struct {
	StatusCode int
	Payload    json.RawMessage
}

func (e *Error) Error() string {
	return fmt.Sprintf("search request failed: HTTP %d", e.StatusCode)
}

// Client issues search queries against a templated endpoint URL.
type Client struct {
	invoker     client.Manager
	urlTemplate string
}

// NewClient creates a search client for the given URL template. The template
// must contain the query placeholder, for example
// "https://api.example.org/searchhandler/data?q={query}".
func NewClient(invoker client.Manager, urlTemplate string) (*Client, error) {
	if !strings.Contains(urlTemplate, QueryPlaceholder) {
		return nil, ErrMissingPlaceholder
	}

	return &Client{
		invoker:     invoker,
		urlTemplate: urlTemplate,
	}, nil
}

// Search base64 encodes the free text query, substitutes it into the URL
// template and performs exactly one GET. A 2xx response yields the raw
// response payload; anything else yields an Error carrying the raw error
// payload. There is no retry or backoff on this endpoint.
func (c *Client) Search(ctx context.Context, query string) (json.RawMessage, error) {
	encoded := base64.StdEncoding.EncodeToString([]byte(query))
	endpoint := strings.ReplaceAll(c.urlTemplate, QueryPlaceholder, url.QueryEscape(encoded))

	resp, err := c.invoker.Invoke(ctx, http.MethodGet, endpoint, nil, nil,
		client.WithRetryPolicy(&client.RetryPolicy{MaxAttempts: 1}))
	if err != nil {
		return nil, err
	}

	payload, err := resp.ToContent(ctx)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &Error{StatusCode: resp.StatusCode, Payload: payload}
	}

	return payload, nil
}
