package local

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"

	"github.com/marmos91/idmapd/pkg/idmap"
)

// osFuncs adapts os/user to the Funcs contract.
func osFuncs() Funcs {
	return Funcs{
		UserByName: func(name string) (Account, error) {
			u, err := user.Lookup(name)
			if err != nil {
				return Account{}, mapUserErr(err)
			}
			return userAccount(u)
		},
		UserByID: func(uid uint32) (Account, error) {
			u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
			if err != nil {
				return Account{}, mapUserErr(err)
			}
			return userAccount(u)
		},
		GroupByName: func(name string) (Account, error) {
			g, err := user.LookupGroup(name)
			if err != nil {
				return Account{}, mapUserErr(err)
			}
			return groupAccount(g)
		},
		GroupByID: func(gid uint32) (Account, error) {
			g, err := user.LookupGroupId(strconv.FormatUint(uint64(gid), 10))
			if err != nil {
				return Account{}, mapUserErr(err)
			}
			return groupAccount(g)
		},
	}
}

func userAccount(u *user.User) (Account, error) {
	uid, err := parseOSID("uid", u.Uid)
	if err != nil {
		return Account{}, err
	}
	gid, err := parseOSID("gid", u.Gid)
	if err != nil {
		return Account{}, err
	}
	return Account{Name: u.Username, UID: uid, GID: gid}, nil
}

func groupAccount(g *user.Group) (Account, error) {
	gid, err := parseOSID("gid", g.Gid)
	if err != nil {
		return Account{}, err
	}
	return Account{Name: g.Name, GID: gid}, nil
}

// parseOSID parses an id string reported by the OS account database.
// Non-numeric ids can show up on non-POSIX name services.
func parseOSID(attr, s string) (uint32, error) {
	n, ok := idmap.ParseID(s)
	if !ok {
		return 0, &idmap.InvalidAttributeError{Attr: attr, Value: s}
	}
	return n, nil
}

// mapUserErr folds the os/user unknown-account error types into
// idmap.ErrNotFound so callers can test with errors.Is.
func mapUserErr(err error) error {
	var (
		unknownUser    user.UnknownUserError
		unknownUserID  user.UnknownUserIdError
		unknownGroup   user.UnknownGroupError
		unknownGroupID user.UnknownGroupIdError
	)
	if errors.As(err, &unknownUser) || errors.As(err, &unknownUserID) ||
		errors.As(err, &unknownGroup) || errors.As(err, &unknownGroupID) {
		return fmt.Errorf("%w: %v", idmap.ErrNotFound, err)
	}
	return err
}
