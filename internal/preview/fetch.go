package preview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// FetchRequest describes one outbound GET.
type FetchRequest struct {
	URL    string
	Query  url.Values
	Accept string
}

// Fetcher issues outbound GETs and returns the streaming response body.
// The caller must close the body; closing it early abandons the download.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (io.ReadCloser, error)
}

// StatusError is returned when a source answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPFetcher is the net/http implementation of Fetcher.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher returns a fetcher whose requests give up after timeout.
// A zero timeout leaves requests bounded only by their context.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch implements Fetcher. Query values are merged into any query the URL
// already carries.
func (f *HTTPFetcher) Fetch(ctx context.Context, req FetchRequest) (io.ReadCloser, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			q.Del(k)
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if req.Accept != "" {
		httpReq.Header.Set("Accept", req.Accept)
	}
	if f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused, then give up on it.
		io.CopyN(io.Discard, resp.Body, 4<<10)
		resp.Body.Close()
		return nil, &StatusError{URL: req.URL, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}
