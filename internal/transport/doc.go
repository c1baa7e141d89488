// Package transport provides the document fetch primitive used to read the
// static aircraft database over HTTP.
//
// # Overview
//
// The database is a tree of small JSON documents served by any static file
// server. transport knows nothing about their contents: it turns a relative
// path such as "A1B.json" into a GET against the configured base URL and
// hands back the raw body.
//
// # Failure Classification
//
// Every failure is returned as a *FetchError carrying the full URL and a
// Status:
//
//   - timeout: the request exceeded the fetch timeout (default 30s)
//   - error: connection failure or a non-2xx response
//   - parsererror: set by callers that fail to decode the body
//
// The distinction matters to the scheduler, which forgets timed-out fetches
// but keeps every other failure cached.
//
// # Caching
//
// Requests carry no cache-busting parameters, so a browser cache, CDN or
// reverse proxy in front of the database may answer them.
//
// # Usage Example
//
//	f := transport.NewHTTPFetcher("https://example.org/db2", 0)
//	body, err := f.GetJSON(ctx, "A.json")
//	if transport.IsTimeout(err) {
//	    // safe to retry later
//	}
package transport
