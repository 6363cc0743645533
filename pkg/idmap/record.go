package idmap

import (
	"strconv"
	"time"
)

const (
	// NameMaxLen bounds schema names (object classes and attribute names).
	NameMaxLen = 31

	// ValueMaxLen bounds record string fields and string lookup values.
	ValueMaxLen = 256
)

// UserRecord is one cached user identity. Principal may be empty when
// the backend has no principal attribute for the account.
type UserRecord struct {
	Username  string
	Principal string
	UID       uint32
	GID       uint32

	// LastUpdated is stamped by the resolver when the record is
	// fetched from the backend. The zero value is never fresh.
	LastUpdated time.Time
}

// GroupRecord is one cached group identity.
type GroupRecord struct {
	Name string
	GID  uint32

	LastUpdated time.Time
}

// ParseID parses a numeric identifier the way the schema loader parses
// integer options: strict base-10, the whole token, 32 bits unsigned.
func ParseID(s string) (uint32, bool) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
