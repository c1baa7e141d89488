package shard

import "strings"

// SyntheticPrefix marks identifiers that are not real aircraft addresses
// (for example TIS-B or anonymised targets). They never exist in the database.
const SyntheticPrefix = '~'

// NormalizeKey returns the canonical upper-case form of a raw identifier.
func NormalizeKey(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// IsSynthetic reports whether key starts with SyntheticPrefix.
func IsSynthetic(key string) bool {
	return len(key) > 0 && key[0] == SyntheticPrefix
}

// Split divides key at level into the shard key (prefix) and the entry key
// looked up inside that shard (suffix). level is clamped to [0, len(key)].
func Split(key string, level int) (prefix, suffix string) {
	if level < 0 {
		level = 0
	}
	if level > len(key) {
		level = len(key)
	}
	return key[:level], key[level:]
}

// DocumentPath returns the path of the shard document for shardKey.
func DocumentPath(shardKey string) string {
	return shardKey + ".json"
}
