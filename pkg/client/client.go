// Package client fetches performance runs from a perfdash listing endpoint.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/NavarchProject/perfdash/pkg/perf"
	"github.com/NavarchProject/perfdash/pkg/retry"
)

const runsPath = "/api/perf-runs"

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client talks to the perf-run REST API.
type Client struct {
	baseURL string
	http    *http.Client
	retry   retry.Config
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetry enables retries of failed fetches. Client errors (4xx) and
// malformed payloads are not retried.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// New creates a client for the API rooted at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		retry:   retry.None(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListRuns fetches the runs matching the criteria, preserving the order and
// field order of the response. A nil criteria fetches every run.
func (c *Client) ListRuns(ctx context.Context, criteria *perf.Criteria) ([]perf.Row, error) {
	var q url.Values
	if criteria != nil {
		q = criteria.Query()
	}
	return retry.DoWithValue(ctx, c.retry, func(ctx context.Context) ([]perf.Row, error) {
		body, err := c.get(ctx, runsPath, q)
		if err != nil {
			return nil, err
		}
		rows, err := perf.DecodeRows(body)
		if err != nil {
			return nil, retry.Permanent(fmt.Errorf("list runs: %w", err))
		}
		return rows, nil
	})
}

// GetRun fetches a single run by row number.
func (c *Client) GetRun(ctx context.Context, rowNo int64) (perf.Row, error) {
	return retry.DoWithValue(ctx, c.retry, func(ctx context.Context) (perf.Row, error) {
		body, err := c.get(ctx, runsPath+"/"+strconv.FormatInt(rowNo, 10), nil)
		if err != nil {
			return perf.Row{}, err
		}
		var row perf.Row
		if err := json.Unmarshal(body, &row); err != nil {
			return perf.Row{}, retry.Permanent(fmt.Errorf("get run %d: %w", rowNo, err))
		}
		return row, nil
	})
}

// Summary fetches the aggregate over all runs.
func (c *Client) Summary(ctx context.Context) (perf.Summary, error) {
	return getJSON[perf.Summary](ctx, c, runsPath+"/summary")
}

// Trends fetches the per-release average TPS trend.
func (c *Client) Trends(ctx context.Context) (perf.Trends, error) {
	return getJSON[perf.Trends](ctx, c, runsPath+"/trends")
}

// ReleaseTags returns the distinct release tags of all runs, sorted.
func (c *Client) ReleaseTags(ctx context.Context) ([]string, error) {
	rows, err := c.ListRuns(ctx, nil)
	if err != nil {
		return nil, err
	}
	return perf.ReleaseTags(rows), nil
}

func getJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	return retry.DoWithValue(ctx, c.retry, func(ctx context.Context) (T, error) {
		var out T
		body, err := c.get(ctx, path, nil)
		if err != nil {
			return out, err
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return out, retry.Permanent(fmt.Errorf("decode %s: %w", path, err))
		}
		return out, nil
	})
}

// get performs one GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode, Body: errorMessage(body)}
		err := fmt.Errorf("GET %s: %w", path, se)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	return body, nil
}

// errorMessage extracts {"error": "..."} bodies, falling back to the raw text.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
