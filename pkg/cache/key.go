package cache

import (
	"fmt"
	"strings"
)

// KeyPrefix starts every page key.
const KeyPrefix = "paging"

// PageKey identifies a cached page.
type PageKey struct {
	// Source names the wrapped data source (e.g. "catalog", "docdir").
	Source string

	Offset int
	Limit  int
}

// String generates a deterministic cache key string.
// Format: paging:source:offset=N:limit=M
//
// Example:
//
//	paging:catalog:offset=20:limit=10
func (k PageKey) String() string {
	return fmt.Sprintf("%s:%s:offset=%d:limit=%d", KeyPrefix, normalizeSource(k.Source), k.Offset, k.Limit)
}

// SourcePattern returns the SCAN pattern matching every page key of source.
func SourcePattern(source string) string {
	return fmt.Sprintf("%s:%s:*", KeyPrefix, normalizeSource(source))
}

// normalizeSource keeps source names from injecting key separators or glob characters.
func normalizeSource(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return "default"
	}
	return strings.NewReplacer(":", "_", "*", "_", "?", "_", "[", "_", "]", "_").Replace(source)
}
