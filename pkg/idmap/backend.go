package idmap

import "context"

// Backend answers individual identity queries. Implementations must be
// safe for concurrent use; the resolver issues queries from many
// goroutines without serialization.
//
// Both methods return ErrNotFound (possibly wrapped) when no identity
// matches the key. Any other error means the query itself failed and
// the resolver will propagate it without touching the cache.
type Backend interface {
	LookupUser(ctx context.Context, lookup Lookup) (UserRecord, error)
	LookupGroup(ctx context.Context, lookup Lookup) (GroupRecord, error)
	Close() error
}
