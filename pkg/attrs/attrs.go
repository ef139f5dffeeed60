// Package attrs reads values back out of slog-style key/value argument lists.
package attrs

import (
	"fmt"
	"log/slog"
)

// String returns the value logged under key in kv ([k1, v1, k2, v2, ...]).
// Strings, fmt.Stringers and slog.Attr entries are understood; the last
// occurrence of key wins. Missing keys yield "".
func String(kv []any, key string) string {
	var out string
	for i := 0; i < len(kv); i++ {
		if a, ok := kv[i].(slog.Attr); ok {
			if a.Key == key {
				out = a.Value.String()
			}
			continue
		}
		k, ok := kv[i].(string)
		if !ok || i+1 >= len(kv) {
			continue
		}
		i++
		if k != key {
			continue
		}
		switch v := kv[i].(type) {
		case string:
			out = v
		case fmt.Stringer:
			out = v.String()
		}
	}
	return out
}
