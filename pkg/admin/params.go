package admin

import (
	"net/url"
	"time"

	"github.com/spf13/cast"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 1000
)

// parseTimeParam parses an RFC 3339 query parameter. Invalid or missing
// values yield nil.
func parseTimeParam(q url.Values, key string) *time.Time {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}

// parseBoolParam parses a boolean query parameter ("true", "1", "f", ...).
func parseBoolParam(q url.Values, key string) *bool {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return nil
	}
	return &b
}

// parseIntParam returns a positive integer parameter or def.
func parseIntParam(q url.Values, key string, def int) int {
	n, err := cast.ToIntE(q.Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// parseLimit returns the page size, defaulted and capped.
func parseLimit(q url.Values) int {
	return min(parseIntParam(q, "limit", defaultAuditLimit), maxAuditLimit)
}

// parseOffset returns a non-negative offset.
func parseOffset(q url.Values) int {
	n, err := cast.ToIntE(q.Get("offset"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
