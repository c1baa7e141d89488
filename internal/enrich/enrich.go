// Package enrich augments resolved aircraft records with type information
// from the aircraft type table.
//
// The table is a single JSON document keyed by ICAO type designator:
//
//	{"B738": {"desc": "L2J", "wtc": "M"}, ...}
//
// It is fetched once per Cache, on first use, and kept for the life of the
// process. Enrichment is best-effort: if the table cannot be loaded, records
// pass through unchanged and the load is not retried.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"

	"github.com/dreamware/acdb/internal/shard"
	"github.com/dreamware/acdb/internal/transport"
)

// DefaultTypesPath is the location of the type table relative to the
// database base URL.
const DefaultTypesPath = "aircraft_types/icao_aircraft_types.json"

// TypeInfo describes one aircraft type.
type TypeInfo struct {
	Desc *string `json:"desc,omitempty"` // ICAO description code, e.g. "L2J"
	WTC  *string `json:"wtc,omitempty"`  // Wake turbulence category
}

// TypeTable maps upper-case type designators to their description.
type TypeTable map[string]TypeInfo

// Cache loads the type table lazily and applies it to records.
//
// Thread-safe: concurrent first calls share a single load.
type Cache struct {
	fetcher transport.Fetcher
	path    string
	log     logr.Logger

	group singleflight.Group

	mu     sync.RWMutex // Protects loaded and table
	loaded bool
	table  TypeTable
}

// NewCache creates a cache that reads the table from path through fetcher.
// An empty path selects DefaultTypesPath.
func NewCache(fetcher transport.Fetcher, path string, log logr.Logger) *Cache {
	if path == "" {
		path = DefaultTypesPath
	}
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Cache{
		fetcher: fetcher,
		path:    path,
		log:     log.WithName("enrich"),
	}
}

// Loaded reports whether a load attempt has completed.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Table returns the type table, loading it on first use. It returns nil if
// the load failed or ctx ended before the load completed. A canceled caller
// does not cancel the load for other callers.
func (c *Cache) Table(ctx context.Context) TypeTable {
	c.mu.RLock()
	if c.loaded {
		t := c.table
		c.mu.RUnlock()
		return t
	}
	c.mu.RUnlock()

	ch := c.group.DoChan("types", func() (any, error) {
		c.mu.RLock()
		if c.loaded {
			t := c.table
			c.mu.RUnlock()
			return t, nil
		}
		c.mu.RUnlock()

		t, err := c.load(context.WithoutCancel(ctx))
		if err != nil {
			c.log.Error(err, "type table unavailable, enrichment disabled", "path", c.path)
		} else {
			c.log.V(1).Info("loaded type table", "path", c.path, "types", len(t))
		}

		c.mu.Lock()
		c.loaded = true
		c.table = t
		c.mu.Unlock()
		return t, nil
	})

	select {
	case res := <-ch:
		t, _ := res.Val.(TypeTable)
		return t
	case <-ctx.Done():
		return nil
	}
}

func (c *Cache) load(ctx context.Context) (TypeTable, error) {
	body, err := c.fetcher.GetJSON(ctx, c.path)
	if err != nil {
		return nil, err
	}
	var t TypeTable
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("decode type table: %w", err)
	}
	return t, nil
}

// Enrich returns a copy of rec with its description and wake category
// filled in from the type table. The description is set only when the
// table's value is exactly three characters; the wake category only when
// rec has none. rec itself is not modified and Enrich never fails.
func (c *Cache) Enrich(ctx context.Context, rec *shard.Record) *shard.Record {
	if rec == nil {
		return nil
	}
	return Apply(c.Table(ctx), rec)
}

// Apply enriches a copy of rec using table.
func Apply(table TypeTable, rec *shard.Record) *shard.Record {
	out := rec.Clone()
	if out == nil || table == nil || out.TypeCode == nil || *out.TypeCode == "" {
		return out
	}

	info, ok := table[strings.ToUpper(*out.TypeCode)]
	if !ok {
		return out
	}
	if info.Desc != nil && len(*info.Desc) == 3 {
		out.Description = shard.StringPtr(*info.Desc)
	}
	if info.WTC != nil && out.WakeCategory == nil {
		out.WakeCategory = shard.StringPtr(*info.WTC)
	}
	return out
}
