// Package transporttest provides a scripted transport.Fetcher for tests.
package transporttest

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/dreamware/acdb/internal/transport"
)

type response struct {
	body []byte
	err  error
	gate chan struct{}
}

// Fetcher answers GetJSON from a table of scripted responses and records
// every call. Paths without a response fail with an http 404 FetchError.
type Fetcher struct {
	mu        sync.Mutex
	responses map[string]*response
	calls     map[string]int
	order     []string
	active    int
	maxActive int
}

// NewFetcher creates an empty scripted fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{
		responses: make(map[string]*response),
		calls:     make(map[string]int),
	}
}

// Set scripts a successful response for path.
func (f *Fetcher) Set(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = &response{body: []byte(body)}
}

// SetError scripts a failing response for path.
func (f *Fetcher) SetError(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = &response{err: err}
}

// SetTimeout scripts a timeout failure for path.
func (f *Fetcher) SetTimeout(path string) {
	f.SetError(path, &transport.FetchError{
		URL:    path,
		Status: transport.StatusTimeout,
		Err:    context.DeadlineExceeded,
	})
}

// Hold makes calls for path block until the returned channel is closed.
// It must be called after the response for path is scripted.
func (f *Fetcher) Hold(path string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.responses[path]
	if !ok {
		r = &response{err: notFound(path)}
		f.responses[path] = r
	}
	r.gate = make(chan struct{})
	return r.gate
}

// GetJSON implements transport.Fetcher.
func (f *Fetcher) GetJSON(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	f.calls[path]++
	f.order = append(f.order, path)
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	r := f.responses[path]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if r == nil {
		return nil, notFound(path)
	}
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.body, nil
}

// Calls returns how many times path was fetched.
func (f *Fetcher) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// TotalCalls returns the number of fetches across all paths.
func (f *Fetcher) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

// Order returns fetched paths in call order.
func (f *Fetcher) Order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// MaxConcurrent returns the highest number of simultaneous GetJSON calls seen.
func (f *Fetcher) MaxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}

func notFound(path string) error {
	return &transport.FetchError{
		URL:        path,
		Status:     transport.StatusError,
		StatusCode: http.StatusNotFound,
		Err:        fmt.Errorf("http %s: %d", path, http.StatusNotFound),
	}
}
