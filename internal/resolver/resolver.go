// Package resolver looks up aircraft records in the sharded database by
// walking progressively longer key prefixes.
package resolver

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/dreamware/acdb/internal/metrics"
	"github.com/dreamware/acdb/internal/shard"
)

// Outcome is the non-error result of a resolution.
type Outcome int

const (
	// NotFound means the database has no record for the key.
	NotFound Outcome = iota
	// Found means Result.Record holds the record.
	Found
	// Strange means a shard on the lookup path was an explicit null. This
	// points at an inconsistent database rather than a missing aircraft.
	Strange
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Strange:
		return "strange"
	default:
		return "not_found"
	}
}

// Result is the outcome of resolving one key.
type Result struct {
	Key     string        // Normalized key that was resolved
	Outcome Outcome       // What the lookup concluded
	Record  *shard.Record // Set when Outcome is Found
	Fetches int           // Number of shard levels visited
}

// ShardSource returns shard documents by shard key. A nil document with a
// nil error is the database's explicit null marker.
type ShardSource interface {
	Fetch(ctx context.Context, shardKey string) (*shard.Document, error)
}

// Enricher augments a found record. It must not fail.
type Enricher interface {
	Enrich(ctx context.Context, rec *shard.Record) *shard.Record
}

// Resolver resolves aircraft identifiers to records.
// Thread-safe: a Resolver holds no mutable state of its own.
type Resolver struct {
	shards   ShardSource
	enricher Enricher
	log      logr.Logger
	metrics  metrics.Recorder
}

// New creates a Resolver. enricher may be nil to return records as stored.
func New(shards ShardSource, enricher Enricher, log logr.Logger, rec metrics.Recorder) *Resolver {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Resolver{
		shards:   shards,
		enricher: enricher,
		log:      log.WithName("resolver"),
		metrics:  rec,
	}
}

// Resolve looks up rawKey.
//
// Starting at level 1, it fetches the shard for key[:level] and then:
//   - returns Strange if the shard is an explicit null
//   - returns Found if key[level:] is an entry of the shard
//   - moves one level deeper if the shard's children hint lists
//     key[:level+1]
//   - returns NotFound otherwise
//
// Keys with the synthetic '~' prefix resolve to NotFound without fetching.
// A fetch failure ends the lookup and is returned unchanged; it is
// typically a *transport.FetchError.
func (r *Resolver) Resolve(ctx context.Context, rawKey string) (Result, error) {
	key := shard.NormalizeKey(rawKey)
	res := Result{Key: key, Outcome: NotFound}

	if key == "" || shard.IsSynthetic(key) {
		r.metrics.Outcome(res.Outcome.String())
		return res, nil
	}

	for level := 1; level <= len(key); level++ {
		prefix, suffix := shard.Split(key, level)

		doc, err := r.shards.Fetch(ctx, prefix)
		res.Fetches++
		if err != nil {
			r.log.V(1).Info("lookup failed", "key", key, "shard", prefix, "error", err.Error())
			r.metrics.Outcome("failed")
			return res, err
		}

		if doc == nil {
			res.Outcome = Strange
			r.log.Info("null shard on lookup path", "key", key, "shard", prefix)
			break
		}

		if rec, ok := doc.Lookup(suffix); ok {
			res.Outcome = Found
			res.Record = rec.Clone()
			if r.enricher != nil {
				res.Record = r.enricher.Enrich(ctx, rec)
			}
			break
		}

		if level == len(key) || !doc.HasChild(key[:level+1]) {
			break
		}
	}

	r.metrics.Outcome(res.Outcome.String())
	return res, nil
}
