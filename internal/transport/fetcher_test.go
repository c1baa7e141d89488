package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHTTPFetcherGetJSON tests successful and failing document fetches
func TestHTTPFetcherGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/db2/A.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"BC123":["N123","B738",null]}`))
		case "/db2/slow.json":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`null`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	t.Run("returns body", func(t *testing.T) {
		f := NewHTTPFetcher(server.URL+"/db2/", time.Second)

		body, err := f.GetJSON(context.Background(), "A.json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"BC123":["N123","B738",null]}`, string(body))
	})

	t.Run("non-2xx is classified as error", func(t *testing.T) {
		f := NewHTTPFetcher(server.URL+"/db2", time.Second)

		_, err := f.GetJSON(context.Background(), "missing.json")
		require.Error(t, err)

		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, StatusError, fe.Status)
		assert.Equal(t, http.StatusNotFound, fe.StatusCode)
		assert.Equal(t, server.URL+"/db2/missing.json", fe.URL)
		assert.False(t, IsTimeout(err))
	})

	t.Run("slow response is classified as timeout", func(t *testing.T) {
		f := NewHTTPFetcher(server.URL+"/db2", 20*time.Millisecond)

		_, err := f.GetJSON(context.Background(), "slow.json")
		require.Error(t, err)
		assert.True(t, IsTimeout(err))

		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, server.URL+"/db2/slow.json", fe.URL)
	})

	t.Run("unreachable server is classified as error", func(t *testing.T) {
		f := NewHTTPFetcher("http://127.0.0.1:1", time.Second)

		_, err := f.GetJSON(context.Background(), "A.json")
		require.Error(t, err)

		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, StatusError, fe.Status)
		assert.Zero(t, fe.StatusCode)
	})
}

// TestNewHTTPFetcherDefaults tests constructor defaults
func TestNewHTTPFetcherDefaults(t *testing.T) {
	f := NewHTTPFetcher("http://example.org/db2///", 0)

	assert.Equal(t, DefaultTimeout, f.Timeout)
	assert.Equal(t, "http://example.org/db2", f.BaseURL)
	assert.Equal(t, "http://example.org/db2/A.json", f.URL("/A.json"))
}

// TestFetchErrorMessage tests the error string formats
func TestFetchErrorMessage(t *testing.T) {
	cause := errors.New("boom")

	withCode := &FetchError{URL: "u", Status: StatusError, StatusCode: 500, Err: cause}
	assert.Equal(t, "fetch u: error (http 500)", withCode.Error())
	assert.ErrorIs(t, withCode, cause)

	noCode := &FetchError{URL: "u", Status: StatusTimeout, Err: cause}
	assert.Equal(t, "fetch u: timeout: boom", noCode.Error())
	assert.True(t, IsTimeout(noCode))
	assert.False(t, IsTimeout(cause))
}
