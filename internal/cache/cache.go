// Package cache holds authorization decision caches.
package cache

import (
	"context"
	"strings"
)

// Entry is a cached allow/deny outcome
type Entry struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// DecisionCache is a read-through cache in front of the authorizer.
// Invalidate must drop every entry; grants and assignments change rarely
// so coarse invalidation is enough.
//
// Callers read Generation before computing a decision and pass it to Set.
// A Set whose generation is older than the current one must never become
// visible to Get, so a decision computed across an invalidation is dropped.
type DecisionCache interface {
	Generation(ctx context.Context) (uint64, error)
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, gen uint64, e Entry) error
	Invalidate(ctx context.Context) error
}

// Key builds the cache key of a (principal, method, uri) decision
func Key(principalID, method, uri string) string {
	return strings.Join([]string{principalID, method, uri}, "|")
}

// Nop never caches anything
type Nop struct{}

func (Nop) Generation(context.Context) (uint64, error)       { return 0, nil }
func (Nop) Get(context.Context, string) (Entry, bool, error) { return Entry{}, false, nil }
func (Nop) Set(context.Context, string, uint64, Entry) error { return nil }
func (Nop) Invalidate(context.Context) error                 { return nil }
