package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single document fetch.
const DefaultTimeout = 30 * time.Second

// Status classifies why a fetch failed.
type Status string

const (
	// StatusTimeout means the request did not complete within the timeout.
	StatusTimeout Status = "timeout"
	// StatusError covers connection failures and non-2xx responses.
	StatusError Status = "error"
	// StatusParseError means the body was not the expected JSON document.
	StatusParseError Status = "parsererror"
)

// FetchError describes a failed document fetch.
// It carries the full address so callers can report which document failed.
type FetchError struct {
	URL        string // Address that was requested
	Status     Status // Failure classification
	StatusCode int    // HTTP status code, 0 if no response was received
	Err        error  // Underlying error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (http %d)", e.URL, e.Status, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a FetchError classified as a timeout.
func IsTimeout(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Status == StatusTimeout
}

// Fetcher retrieves raw JSON documents addressed relative to a base location.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	// GetJSON returns the body of the document at path.
	// Failures are reported as *FetchError.
	GetJSON(ctx context.Context, path string) ([]byte, error)
}

// HTTPFetcher fetches documents over HTTP from BaseURL.
type HTTPFetcher struct {
	client  *http.Client
	BaseURL string
	Timeout time.Duration
}

// NewHTTPFetcher creates a fetcher rooted at baseURL.
// A zero timeout selects DefaultTimeout.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{
		client:  &http.Client{},
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: timeout,
	}
}

// URL joins path onto the base URL.
func (f *HTTPFetcher) URL(path string) string {
	return f.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// GetJSON issues a GET for path and returns the response body.
// The request carries no cache-busting parameters, so intermediate HTTP
// caches may serve it.
func (f *HTTPFetcher) GetJSON(ctx context.Context, path string) ([]byte, error) {
	url := f.URL(path)

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Status: StatusError, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Status: classify(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, &FetchError{
			URL:        url,
			Status:     StatusError,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("http %s: %d", url, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Status: classify(ctx, err), Err: err}
	}
	return body, nil
}

func classify(ctx context.Context, err error) Status {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return StatusTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return StatusTimeout
	}
	return StatusError
}
