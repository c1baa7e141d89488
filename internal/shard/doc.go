// Package shard defines the data model of the static aircraft database:
// keys, shard documents and aircraft records.
//
// # Overview
//
// The database is partitioned by ICAO address prefix. The shard for prefix
// "A" holds records for every address starting with "A" that did not get
// a deeper shard of its own, keyed by the remaining suffix:
//
//	A.json   {"BC123": [...], "children": ["AB", "A0"]}
//	AB.json  {"0001": [...]}
//
// A lookup for "AB0001" splits the key at increasing levels:
//
//	level 1: shard "A",  suffix "B0001"
//	level 2: shard "AB", suffix "0001"
//
// # Core Components
//
// Document: one decoded shard
//   - Entries maps suffixes to records
//   - Children lists deeper shard keys that exist (optional hint)
//   - A JSON null body decodes to a nil Document
//
// Record: metadata for one aircraft
//   - Registration, type designator and flags from the shard
//   - Description and wake category slots filled in by enrichment
//   - Optional fields are pointers so "absent" and "empty" stay distinct
//
// Keys:
//   - NormalizeKey upper-cases raw identifiers
//   - IsSynthetic detects the '~' prefix used for non-ICAO targets
//   - Split produces (shard key, suffix) for a level
package shard
