// Package pathutil maps request paths onto a bounded set of metric labels.
package pathutil

import (
	"strings"
)

// Other is the label for any path outside the API surface.
const Other = "/other"

var knownPaths = map[string]struct{}{
	"/v1/scrape":       {},
	"/v1/scrape/batch": {},
	"/v1/cache":        {},
	"/v1/cache/stats":  {},
	"/v1/cache/entry":  {},
	"/health":          {},
	"/health/ready":    {},
	"/health/live":     {},
	"/metrics":         {},
}

// NormalizePath strips the query and trailing slash from path and returns it
// if it is one of the API routes, or Other. Scanners probing random paths
// therefore cannot inflate label cardinality.
func NormalizePath(path string) string {
	if i := strings.IndexByte(path, '?'); i != -1 {
		path = path[:i]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return Other
}

// Cardinality returns the number of distinct labels NormalizePath can yield.
func Cardinality() int {
	return len(knownPaths) + 1
}
