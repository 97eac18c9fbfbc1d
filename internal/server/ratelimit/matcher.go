package ratelimit

import (
	"net/http"
	"strings"
)

// unlimited marks routes that are never limited.
var unlimited = &Rule{}

// Match returns the rule for a request: exact paths first, then the longest
// matching prefix. It returns nil when only the default applies.
func Match(path, method string, rules []Rule) *Rule {
	if path == "/health" && method == http.MethodGet {
		return unlimited
	}
	if method == http.MethodOptions {
		return unlimited
	}

	var best *Rule
	for i := range rules {
		r := &rules[i]
		if r.Method != method {
			continue
		}
		if r.Path == path {
			return r
		}
		if strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) {
			if best == nil || len(r.Path) > len(best.Path) {
				best = r
			}
		}
	}
	return best
}
