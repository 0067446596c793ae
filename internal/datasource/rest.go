package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxErrorBodyBytes = 512

// restClient issues JSON GET requests against one upstream base URL
type restClient struct {
	http    *RateLimitedHTTPClient
	baseURL string
	source  string
	token   string
}

func newRESTClient(httpClient *RateLimitedHTTPClient, source, baseURL, token string) restClient {
	return restClient{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		source:  source,
		token:   token,
	}
}

// getJSON fetches path with query and decodes the body into out
func (c restClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return NewDataSourceError(c.source, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return NewDataSourceError(c.source, ErrCodeNetworkError, "request to "+path+" failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return NewDataSourceError(c.source, ErrCodeNotFound, path+" not found", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewDataSourceError(c.source, ErrCodeAuthenticationFailed, "access denied", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewDataSourceError(c.source, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return NewDataSourceError(c.source, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewDataSourceError(c.source, ErrCodeInvalidData, "failed to parse response", err)
	}
	return nil
}
