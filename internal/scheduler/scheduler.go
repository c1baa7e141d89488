package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/dreamware/acdb/internal/metrics"
	"github.com/dreamware/acdb/internal/shard"
	"github.com/dreamware/acdb/internal/storage"
	"github.com/dreamware/acdb/internal/transport"
)

// DefaultConcurrency is the number of shard fetches allowed in flight.
// The database is many small documents, often behind a constrained link,
// so fetches are issued one at a time.
const DefaultConcurrency = 1

// Options configures a Scheduler.
type Options struct {
	// Concurrency is the maximum number of outstanding fetches.
	// Zero selects DefaultConcurrency.
	Concurrency int
	// Timeout bounds each fetch. Zero selects transport.DefaultTimeout.
	Timeout time.Duration
	// Logger for the scheduler.
	Logger logr.Logger
	// Metrics receives cache and dispatch events.
	Metrics metrics.Recorder
}

// pending is one shard request. It settles exactly once; every caller
// holding it observes the same document or error.
type pending struct {
	key  string
	done chan struct{}
	doc  *shard.Document
	err  error
}

func newPending(key string) *pending {
	return &pending{key: key, done: make(chan struct{})}
}

func (p *pending) settle(doc *shard.Document, err error) {
	p.doc, p.err = doc, err
	close(p.done)
}

func (p *pending) wait(ctx context.Context) (*shard.Document, error) {
	select {
	case <-p.done:
		return p.doc, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats is a snapshot of scheduler state.
type Stats struct {
	Cached   int      `json:"cached"`    // Entries in the request cache, pending or settled
	Queued   int      `json:"queued"`    // Requests waiting for dispatch
	InFlight int      `json:"in_flight"` // Requests being fetched
	Fetches  uint64   `json:"fetches"`   // Fetches issued since creation
	Hits     uint64   `json:"hits"`      // Requests answered by an existing entry
	Evicted  uint64   `json:"evicted"`   // Entries dropped after a timeout
	Keys     []string `json:"keys,omitempty"`
}

// Scheduler fetches shard documents, deduplicating requests per shard key
// and limiting how many fetches run at once.
//
// Every shard key maps to a single cache entry that is created on first
// request and shared by all later requests, whether it is still queued,
// in flight or settled. Successful documents stay cached for the life of
// the Scheduler. A fetch that times out is removed from the cache so the
// next request tries again; any other failure stays cached and is replayed.
//
// Thread-safe: All methods are safe for concurrent access.
type Scheduler struct {
	fetcher transport.Fetcher
	entries *storage.MemoryStore[*pending]
	log     logr.Logger
	metrics metrics.Recorder
	timeout time.Duration
	ceiling int

	mu       sync.Mutex // Protects queue and inFlight
	queue    []*pending
	inFlight int

	fetches atomic.Uint64
	evicted atomic.Uint64
}

// New creates a Scheduler that fetches documents through fetcher.
func New(fetcher transport.Fetcher, opts Options) *Scheduler {
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = transport.DefaultTimeout
	}

	return &Scheduler{
		fetcher: fetcher,
		entries: storage.NewMemoryStore[*pending](),
		log:     opts.Logger.WithName("scheduler"),
		metrics: opts.Metrics,
		timeout: opts.Timeout,
		ceiling: opts.Concurrency,
	}
}

// Fetch returns the shard document for shardKey. A nil document with a nil
// error means the database holds an explicit null at that address.
//
// ctx bounds only this caller's wait. The fetch itself is shared with other
// callers and runs to completion regardless.
func (s *Scheduler) Fetch(ctx context.Context, shardKey string) (*shard.Document, error) {
	p, created := s.entries.GetOrCreate(shardKey, s.enqueue(shardKey))
	if created {
		s.metrics.CacheMiss()
		s.log.V(1).Info("queued shard fetch", "shard", shardKey)
		s.dispatch()
	} else {
		s.metrics.CacheHit()
	}
	return p.wait(ctx)
}

// enqueue returns the create callback for a new cache entry. The entry is
// appended to the queue while the cache table is still locked, so queue
// order matches the order in which entries were created.
func (s *Scheduler) enqueue(shardKey string) func() *pending {
	return func() *pending {
		p := newPending(shardKey)
		s.mu.Lock()
		s.queue = append(s.queue, p)
		s.mu.Unlock()
		return p
	}
}

// dispatch starts queued fetches in FIFO order while below the ceiling.
// It runs after every enqueue and after every completed fetch.
func (s *Scheduler) dispatch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) > 0 && s.inFlight < s.ceiling {
		p := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.inFlight++
		go s.run(p)
	}
	s.metrics.QueueDepth(len(s.queue), s.inFlight)
}

func (s *Scheduler) run(p *pending) {
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
		s.dispatch()
	}()

	s.fetches.Add(1)
	path := shard.DocumentPath(p.key)
	s.log.V(1).Info("fetching shard", "shard", p.key, "path", path)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	doc, err := s.load(ctx, path)
	elapsed := time.Since(start)

	if err != nil {
		fe := asFetchError(path, err)
		s.metrics.FetchDone(string(fe.Status), elapsed)
		if fe.Status == transport.StatusTimeout {
			if s.entries.CompareAndDelete(p.key, p) {
				s.evicted.Add(1)
				s.metrics.Evicted()
			}
		}
		s.log.Error(fe, "shard fetch failed", "shard", p.key, "status", fe.Status, "duration", elapsed)
		p.settle(nil, fe)
		return
	}

	s.metrics.FetchDone("ok", elapsed)
	s.log.V(1).Info("fetched shard", "shard", p.key, "entries", doc.Len(), "null", doc == nil, "duration", elapsed)
	p.settle(doc, nil)
}

func (s *Scheduler) load(ctx context.Context, path string) (*shard.Document, error) {
	body, err := s.fetcher.GetJSON(ctx, path)
	if err != nil {
		return nil, err
	}
	doc, err := shard.ParseDocument(body)
	if err != nil {
		return nil, &transport.FetchError{URL: path, Status: transport.StatusParseError, Err: err}
	}
	return doc, nil
}

// asFetchError returns err as a *transport.FetchError, classifying errors
// from fetchers that do not produce one.
func asFetchError(path string, err error) *transport.FetchError {
	var fe *transport.FetchError
	if errors.As(err, &fe) {
		return fe
	}
	status := transport.StatusError
	if errors.Is(err, context.DeadlineExceeded) {
		status = transport.StatusTimeout
	}
	return &transport.FetchError{URL: path, Status: status, Err: err}
}

// Cached reports whether shardKey has a cache entry, pending or settled.
func (s *Scheduler) Cached(shardKey string) bool {
	_, err := s.entries.Get(shardKey)
	return err == nil
}

// Stats returns a snapshot of the scheduler state.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	queued, inFlight := len(s.queue), s.inFlight
	s.mu.Unlock()

	es := s.entries.Stats()
	return Stats{
		Cached:   es.Keys,
		Queued:   queued,
		InFlight: inFlight,
		Fetches:  s.fetches.Load(),
		Hits:     es.Hits,
		Evicted:  s.evicted.Load(),
		Keys:     s.entries.List(),
	}
}
