package idmap

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/marmos91/idmapd/internal/logger"
)

// Resolver maps names, principals and numeric ids through a
// read-through TTL cache in front of a Backend. All methods are safe
// for concurrent use.
type Resolver struct {
	config  *Config
	backend Backend
	metrics Metrics

	users  *Cache[UserRecord]
	groups *Cache[GroupRecord]

	hits   atomic.Uint64
	misses atomic.Uint64

	// now is replaceable in tests to control freshness.
	now func() time.Time
}

// Stats is a point-in-time snapshot of resolver counters.
type Stats struct {
	Users  int    `json:"users"`
	Groups int    `json:"groups"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// NewResolver wires a resolver over the given backend. The config must
// not be mutated afterwards. metrics may be nil.
func NewResolver(config *Config, backend Backend, metrics Metrics) *Resolver {
	return &Resolver{
		config:  config,
		backend: backend,
		metrics: metrics,
		users:   NewCache[UserRecord](),
		groups:  NewCache[GroupRecord](),
		now:     time.Now,
	}
}

// NameToUID resolves a username to its uid.
func (r *Resolver) NameToUID(ctx context.Context, username string) (uint32, error) {
	rec, err := r.lookupUser(ctx, userLookup(AttrUserName, StringValue(username)))
	if err != nil {
		return 0, err
	}
	return rec.UID, nil
}

// NameToIDs resolves a username to its uid and primary gid.
func (r *Resolver) NameToIDs(ctx context.Context, username string) (uid, gid uint32, err error) {
	rec, err := r.lookupUser(ctx, userLookup(AttrUserName, StringValue(username)))
	if err != nil {
		return 0, 0, err
	}
	return rec.UID, rec.GID, nil
}

// UIDToName resolves a uid to its username.
func (r *Resolver) UIDToName(ctx context.Context, uid uint32) (string, error) {
	rec, err := r.lookupUser(ctx, userLookup(AttrUID, NumberValue(uid)))
	if err != nil {
		return "", err
	}
	return rec.Username, nil
}

// PrincipalToIDs resolves an authentication principal to uid and gid.
func (r *Resolver) PrincipalToIDs(ctx context.Context, principal string) (uid, gid uint32, err error) {
	rec, err := r.lookupUser(ctx, userLookup(AttrPrincipal, StringValue(principal)))
	if err != nil {
		return 0, 0, err
	}
	return rec.UID, rec.GID, nil
}

// GroupToGID resolves a group name to its gid.
func (r *Resolver) GroupToGID(ctx context.Context, name string) (uint32, error) {
	rec, err := r.lookupGroup(ctx, groupLookup(AttrGroupName, StringValue(name)))
	if err != nil {
		return 0, err
	}
	return rec.GID, nil
}

// GIDToGroup resolves a gid to its group name.
func (r *Resolver) GIDToGroup(ctx context.Context, gid uint32) (string, error) {
	rec, err := r.lookupGroup(ctx, groupLookup(AttrGID, NumberValue(gid)))
	if err != nil {
		return "", err
	}
	return rec.Name, nil
}

// Stats returns cache sizes and hit/miss counters.
func (r *Resolver) Stats() Stats {
	return Stats{
		Users:  r.users.Len(),
		Groups: r.groups.Len(),
		Hits:   r.hits.Load(),
		Misses: r.misses.Load(),
	}
}

// Flush drops all cached records. Lookups in flight keep their copies.
func (r *Resolver) Flush() {
	r.users.Clear()
	r.groups.Clear()
	logger.Info("idmap caches flushed")
}

// Close releases the backend session.
func (r *Resolver) Close() error {
	return r.backend.Close()
}

func (r *Resolver) lookupUser(ctx context.Context, l Lookup) (UserRecord, error) {
	if err := checkValue(l); err != nil {
		return UserRecord{}, err
	}

	if rec, ok := r.users.Lookup(l.matchUser); ok && r.fresh(rec.LastUpdated) {
		r.recordHit(l)
		return rec, nil
	}
	r.recordMiss(l)

	start := time.Now()
	rec, err := r.backend.LookupUser(ctx, l)
	r.recordQuery(l, time.Since(start), err)
	if err != nil {
		// A stale record, if any, stays in place untouched.
		return UserRecord{}, err
	}

	rec.LastUpdated = r.now()
	if r.config.CacheTTL != 0 {
		r.users.Insert(l.matchUser, rec)
	}
	return rec, nil
}

func (r *Resolver) lookupGroup(ctx context.Context, l Lookup) (GroupRecord, error) {
	if err := checkValue(l); err != nil {
		return GroupRecord{}, err
	}

	if rec, ok := r.groups.Lookup(l.matchGroup); ok && r.fresh(rec.LastUpdated) {
		r.recordHit(l)
		return rec, nil
	}
	r.recordMiss(l)

	start := time.Now()
	rec, err := r.backend.LookupGroup(ctx, l)
	r.recordQuery(l, time.Since(start), err)
	if err != nil {
		return GroupRecord{}, err
	}

	rec.LastUpdated = r.now()
	if r.config.CacheTTL != 0 {
		r.groups.Insert(l.matchGroup, rec)
	}
	return rec, nil
}

// fresh reports whether a record stamped at t is still within the TTL
// window. TTL zero means nothing is ever fresh.
func (r *Resolver) fresh(t time.Time) bool {
	ttl := r.config.TTL()
	if ttl == 0 {
		return false
	}
	return r.now().Sub(t) < ttl
}

func checkValue(l Lookup) error {
	if !l.Value.IsNumber() && len(l.Value.Text()) > ValueMaxLen {
		return &OverflowError{What: l.Attr.String() + " lookup value", Limit: ValueMaxLen}
	}
	return nil
}

func (r *Resolver) recordHit(l Lookup) {
	r.hits.Add(1)
	if r.metrics != nil {
		r.metrics.RecordCacheHit(l.Class.String())
	}
	logger.Debug("idmap cache hit", "class", l.Class.String(), "attr", l.Attr.String(), "value", l.Value.Text())
}

func (r *Resolver) recordMiss(l Lookup) {
	r.misses.Add(1)
	if r.metrics != nil {
		r.metrics.RecordCacheMiss(l.Class.String())
	}
}

func (r *Resolver) recordQuery(l Lookup, d time.Duration, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
		logger.Warn("idmap backend query failed",
			"class", l.Class.String(), "attr", l.Attr.String(), "value", l.Value.Text(), "error", err)
	}
	if r.metrics != nil {
		r.metrics.RecordBackendQuery(l.Class.String(), d, outcome)
	}
	logger.Debug("idmap backend query",
		"class", l.Class.String(), "attr", l.Attr.String(), "value", l.Value.Text(),
		"outcome", outcome, "duration", d)
}
