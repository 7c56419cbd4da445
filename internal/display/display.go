// Package display holds the small human-readable formatting helpers
// used by `chithi list` and debug logging: byte-size rendering,
// space-joined argv display, and "print nothing for absent optional
// values".
package display

import (
	"fmt"
	"strings"
)

const (
	kb = 1024
	mb = 1024 * kb
	gb = 1024 * mb
)

// ReadableBytes renders a byte count the way `zfs list -p` sizes are
// shown to a human: "UNKNOWN" for zero (the `zfs` "unknown" sentinel),
// whole KiB below 1 MiB, one decimal place above that.
func ReadableBytes(n uint64) string {
	switch {
	case n == 0:
		return "UNKNOWN"
	case n >= gb:
		return fmt.Sprintf("%.1f GiB", float64(n)/gb)
	case n >= mb:
		return fmt.Sprintf("%.1f MiB", float64(n)/mb)
	default:
		return fmt.Sprintf("%d KiB", n/kb)
	}
}

// SpaceSeparated joins strs with a single space, used to display a
// materialized argv or tag list.
func SpaceSeparated(strs []string) string {
	return strings.Join(strs, " ")
}

// OptDisplay renders v's pointee via fmt.Sprint, or "" if v is nil —
// used so an absent job source or target prints nothing instead of
// "<nil>".
func OptDisplay[T any](v *T) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}
