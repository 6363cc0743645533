package idmap

import "strconv"

// Class selects which record collection a lookup targets.
type Class int

const (
	ClassUser Class = iota
	ClassGroup
	numClasses
)

func (c Class) String() string {
	switch c {
	case ClassUser:
		return "user"
	case ClassGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Attr identifies the record field a lookup key matches against.
type Attr int

const (
	AttrUserName Attr = iota
	AttrGroupName
	AttrPrincipal
	AttrUID
	AttrGID
	numAttrs
)

func (a Attr) String() string {
	switch a {
	case AttrUserName:
		return "username"
	case AttrGroupName:
		return "groupname"
	case AttrPrincipal:
		return "principal"
	case AttrUID:
		return "uid"
	case AttrGID:
		return "gid"
	default:
		return "unknown"
	}
}

// Value is a tagged lookup value: either a string or a 32-bit number.
type Value struct {
	s       string
	n       uint32
	numeric bool
}

func StringValue(s string) Value { return Value{s: s} }
func NumberValue(n uint32) Value { return Value{n: n, numeric: true} }
func (v Value) IsNumber() bool   { return v.numeric }
func (v Value) Number() uint32   { return v.n }

// Text renders the value for filters and log output. Numbers render in
// decimal.
func (v Value) Text() string {
	if v.numeric {
		return strconv.FormatUint(uint64(v.n), 10)
	}
	return v.s
}

// Lookup is one identity lookup key. Class and Attr must agree: user
// attributes go with ClassUser, group attributes with ClassGroup.
type Lookup struct {
	Class Class
	Attr  Attr
	Value Value
}

func userLookup(attr Attr, v Value) Lookup {
	return Lookup{Class: ClassUser, Attr: attr, Value: v}
}

func groupLookup(attr Attr, v Value) Lookup {
	return Lookup{Class: ClassGroup, Attr: attr, Value: v}
}

// matchUser reports whether a cached user record satisfies the key.
func (l Lookup) matchUser(r *UserRecord) bool {
	switch l.Attr {
	case AttrUserName:
		return r.Username == l.Value.Text()
	case AttrPrincipal:
		return r.Principal == l.Value.Text()
	case AttrUID:
		return l.Value.IsNumber() && r.UID == l.Value.Number()
	default:
		return false
	}
}

// matchGroup reports whether a cached group record satisfies the key.
func (l Lookup) matchGroup(r *GroupRecord) bool {
	switch l.Attr {
	case AttrGroupName:
		return r.Name == l.Value.Text()
	case AttrGID:
		return l.Value.IsNumber() && r.GID == l.Value.Number()
	default:
		return false
	}
}
