package store

import (
	"fmt"
	"sort"
	"strings"
)

// Tag maps are persisted as a single delimited string. Forward slashes are
// used as the entry delimiter because they cannot appear in file path
// components on any host platform, which is where these values come from.
const (
	tagDelimiter      = "/"
	tagValueSeparator = ":"
)

// TagFormatError reports a malformed serialized tag map read from the store.
type TagFormatError struct {
	Input string
	Entry string
}

func (e *TagFormatError) Error() string {
	return fmt.Sprintf("malformed tag entry %q in %q", e.Entry, e.Input)
}

// serializeTags encodes a tag map as "/k:v/k2:v2/". Keys are lowercased and
// trimmed, and entries are sorted by key so the encoding is deterministic.
// An empty map encodes as the empty string.
func serializeTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(tagDelimiter)
	for _, k := range keys {
		b.WriteString(strings.ToLower(strings.TrimSpace(k)))
		b.WriteString(tagValueSeparator)
		b.WriteString(tags[k])
		b.WriteString(tagDelimiter)
	}
	return b.String()
}

// deserializeTags decodes a serialized tag map. Only the first separator in
// an entry splits key from value, so values may contain separators. An entry
// with no separator at all is a *TagFormatError, never silently coerced to
// empty. The empty string decodes to a nil map.
func deserializeTags(s string) (map[string]string, error) {
	var tags map[string]string
	for _, entry := range strings.Split(s, tagDelimiter) {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, tagValueSeparator, 2)
		if len(parts) != 2 {
			return nil, &TagFormatError{Input: s, Entry: entry}
		}
		if tags == nil {
			tags = make(map[string]string)
		}
		tags[parts[0]] = parts[1]
	}
	return tags, nil
}
