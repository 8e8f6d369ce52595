package movienight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RetryPolicy bounds the retry loop around remote calls. Only 429 and 5xx
// responses (and transport errors) count as transient; everything else
// propagates on the first attempt.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     4 * time.Second,
	}
}

// ErrEmptyBody marks a 200 response with no payload. The API never sends
// one legitimately, so it is permanent: retrying would just replay it.
var ErrEmptyBody = errors.New("movienight: empty response body")

// StatusError is a non-2xx response from the catalog API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("movienight: status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Transient() bool {
	return e.Code == http.StatusTooManyRequests || (e.Code >= 500 && e.Code <= 599)
}

// Client wraps the streaming-availability REST API. It holds no state
// beyond configuration; safe for concurrent use.
type Client struct {
	BaseURL string
	APIKey  string
	Country string
	HTTP    *http.Client
	Retry   RetryPolicy

	// sleep replaces the backoff wait in tests; nil means real time.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Country: "us",
		HTTP:    &http.Client{Timeout: 12 * time.Second},
		Retry:   DefaultRetryPolicy(),
	}
}

// SearchPage fetches one page of titles for a catalog, optionally resuming
// from the cursor returned by the previous page.
func (c *Client) SearchPage(ctx context.Context, catalog, cursor string) (*SearchPage, error) {
	q := url.Values{}
	q.Set("country", c.Country)
	q.Set("catalogs", catalog)
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page SearchPage
	if err := c.getJSON(ctx, "/shows/search/filters", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetShow fetches full detail for a single title by its catalog id.
func (c *Client) GetShow(ctx context.Context, monID string) (*TitleDTO, error) {
	q := url.Values{}
	q.Set("country", c.Country)

	var dto TitleDTO
	if err := c.getJSON(ctx, "/shows/"+url.PathEscape(monID), q, &dto); err != nil {
		return nil, err
	}
	if dto.ID == "" {
		return nil, fmt.Errorf("movienight: empty show payload for %q", monID)
	}
	return &dto, nil
}

// GetEpisodes fetches the episode list for a series.
func (c *Client) GetEpisodes(ctx context.Context, monID string) ([]EpisodeDTO, error) {
	q := url.Values{}
	q.Set("country", c.Country)

	var eps []EpisodeDTO
	if err := c.getJSON(ctx, "/shows/"+url.PathEscape(monID)+"/episodes", q, &eps); err != nil {
		return nil, err
	}
	return eps, nil
}

// TopShows fetches the provider's current ranked top list.
func (c *Client) TopShows(ctx context.Context, service string) ([]TitleDTO, error) {
	q := url.Values{}
	q.Set("country", c.Country)
	q.Set("service", service)

	var shows []TitleDTO
	if err := c.getJSON(ctx, "/shows/top", q, &shows); err != nil {
		return nil, err
	}
	return shows, nil
}

// getJSON performs one GET with the retry policy applied and decodes the
// body into out.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	body, err := c.doWithRetry(ctx, u)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("movienight: decode %s: %w", path, err)
	}
	return nil
}

// doWithRetry issues the request up to Retry.Attempts times, sleeping with
// exponential backoff between transient failures. The delay doubles from
// InitialDelay up to MaxDelay and honors ctx cancellation. The last
// attempt's error is returned as-is.
func (c *Client) doWithRetry(ctx context.Context, u string) ([]byte, error) {
	attempts := c.Retry.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := c.Retry.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.doOnce(ctx, u)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.Transient() {
			return nil, err
		}
		if errors.Is(err, ErrEmptyBody) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if attempt == attempts {
			break
		}

		if err := c.backoff(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
		if delay > c.Retry.MaxDelay {
			delay = c.Retry.MaxDelay
		}
	}
	return nil, lastErr
}

func (c *Client) backoff(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (c *Client) doOnce(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("movienight: build request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("movienight: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("movienight: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: msg}
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w (HTTP %d)", ErrEmptyBody, resp.StatusCode)
	}
	return body, nil
}
