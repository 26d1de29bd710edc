package gmail

import "strings"

// MessageID is an opaque Gmail-issued message identifier.
type MessageID string

// RawHeaders holds the metadata headers returned for one message. Header
// names are case-insensitive; a name may carry multiple values.
type RawHeaders map[string][]string

// Add appends a header value under the canonical (lowercased) name.
func (h RawHeaders) Add(name, value string) {
	key := strings.ToLower(name)
	h[key] = append(h[key], value)
}

// Get returns the first value for name, or "" if absent.
func (h RawHeaders) Get(name string) string {
	values := h[strings.ToLower(name)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Has reports whether at least one value exists for name.
func (h RawHeaders) Has(name string) bool {
	return len(h[strings.ToLower(name)]) > 0
}
