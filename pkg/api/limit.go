package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/txn2/analytics-gateway/pkg/query"
)

const (
	// DefaultLimit applies when no limit is requested.
	DefaultLimit = 100

	// MaxLimit bounds every result set regardless of caller input.
	MaxLimit = 10000
)

// ParseLimit parses the limit query parameter. Empty means DefaultLimit,
// values above MaxLimit are clamped, and anything that is not a positive
// integer is rejected.
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-") {
			return MaxLimit, nil
		}
		return 0, &query.ValidationError{Field: "limit", Reason: "must be a positive integer"}
	}
	if n <= 0 {
		return 0, &query.ValidationError{Field: "limit", Reason: "must be a positive integer"}
	}
	if n > MaxLimit {
		return MaxLimit, nil
	}
	return int(n), nil
}
