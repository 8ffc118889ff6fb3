package query

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/foliolabs/folio/pkg/logging"
	"github.com/foliolabs/folio/pkg/search"
)

// Client is a search.Searcher backed by a remote search endpoint. It
// issues GET requests with the same parameter names the state mirror
// uses, so a mirrored URL and a remote query are interchangeable.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logging.Logger
}

// NewClient creates a remote search client for the given base URL,
// e.g. "https://example.org/api/search".
func NewClient(baseURL string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.New(nil)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.WithComponent("search-client"),
	}
}

// Search runs one remote search pass. Transport failures and non-2xx
// statuses both surface as a remote search error; the caller shows the
// generic message and clears its results.
func (c *Client) Search(ctx context.Context, req search.Request) (*search.Results, error) {
	endpoint := c.baseURL + "?" + EncodeState(req).Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warnf("search request failed: %v", err)
		return nil, search.ErrRemote
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warnf("search endpoint returned %d", resp.StatusCode)
		return nil, search.ErrRemote
	}

	var results search.Results
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		c.logger.Warnf("malformed search response: %v", err)
		return nil, search.ErrRemote
	}
	return &results, nil
}
