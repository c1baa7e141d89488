package shard

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slices"
)

// childrenKey is the reserved document member listing deeper shards.
const childrenKey = "children"

// Document is one decoded shard of the database.
//
// Wire format:
//
//	{
//	  "BC123": ["N123AB", "B738", "00"],
//	  "children": ["AB", "AC"]
//	}
//
// Every member except "children" maps a key suffix to a record. The
// children hint lists the one-character-longer shard keys that exist.
type Document struct {
	Entries  map[string]*Record
	Children []string // nil when the document carries no hint
}

// ParseDocument decodes a shard body. A JSON null body is the database's
// explicit "no data at this address" marker and yields a nil document and
// no error.
func ParseDocument(raw []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &members); err != nil {
		return nil, fmt.Errorf("decode shard document: %w", err)
	}

	doc := &Document{Entries: make(map[string]*Record, len(members))}
	for k, v := range members {
		if k == childrenKey {
			if err := json.Unmarshal(v, &doc.Children); err != nil {
				return nil, fmt.Errorf("decode shard children: %w", err)
			}
			if doc.Children == nil {
				doc.Children = []string{}
			}
			continue
		}
		rec, err := DecodeRecord(v)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", k, err)
		}
		doc.Entries[k] = rec
	}
	return doc, nil
}

// Lookup returns the record stored under suffix.
func (d *Document) Lookup(suffix string) (*Record, bool) {
	if d == nil {
		return nil, false
	}
	r, ok := d.Entries[suffix]
	return r, ok
}

// HasChildHint reports whether the document declares its children.
func (d *Document) HasChildHint() bool {
	return d != nil && d.Children != nil
}

// HasChild reports whether shardKey is listed in the children hint.
func (d *Document) HasChild(shardKey string) bool {
	return d.HasChildHint() && slices.Contains(d.Children, shardKey)
}

// Len returns the number of records in the document.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Entries)
}
