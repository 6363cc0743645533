package idmap

import "time"

// Metrics receives resolver events. Implementations must be safe for
// concurrent use. A nil Metrics disables instrumentation.
type Metrics interface {
	// RecordCacheHit counts a fresh cache hit for kind ("user" or
	// "group").
	RecordCacheHit(kind string)

	// RecordCacheMiss counts a lookup that had to reach the backend.
	RecordCacheMiss(kind string)

	// RecordBackendQuery observes one backend query with its duration
	// and outcome ("ok", "not_found" or "error").
	RecordBackendQuery(kind string, duration time.Duration, outcome string)
}
