// Package local implements the identity backend over the operating
// system account database. It serves deployments without a directory
// server, resolving names and ids through os/user.
package local

import (
	"context"
	"strings"

	"github.com/marmos91/idmapd/internal/logger"
	"github.com/marmos91/idmapd/pkg/idmap"
)

// Account is a resolved OS account in the shape both user and group
// lookups reduce to.
type Account struct {
	Name string
	UID  uint32
	GID  uint32
}

// Funcs are the OS lookup entry points. Tests inject fakes; production
// code uses the os/user wrappers from osfuncs.go. Each returns
// idmap.ErrNotFound (possibly wrapped) for unknown accounts.
type Funcs struct {
	UserByName  func(name string) (Account, error)
	UserByID    func(uid uint32) (Account, error)
	GroupByName func(name string) (Account, error)
	GroupByID   func(gid uint32) (Account, error)
}

// Backend resolves identities from the local account database.
type Backend struct {
	domain string
	funcs  Funcs
}

var _ idmap.Backend = (*Backend)(nil)

// New returns a backend over os/user. domain is the local domain used
// to synthesize and validate principal names; empty disables principal
// handling.
func New(domain string) *Backend {
	return NewWithFuncs(domain, osFuncs())
}

// NewWithFuncs returns a backend with injected lookup functions.
func NewWithFuncs(domain string, funcs Funcs) *Backend {
	return &Backend{domain: domain, funcs: funcs}
}

func (b *Backend) LookupUser(ctx context.Context, l idmap.Lookup) (idmap.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return idmap.UserRecord{}, err
	}

	switch l.Attr {
	case idmap.AttrUserName:
		acct, err := b.funcs.UserByName(l.Value.Text())
		if err != nil {
			return idmap.UserRecord{}, err
		}
		return b.userRecord(acct), nil

	case idmap.AttrUID:
		acct, err := b.funcs.UserByID(l.Value.Number())
		if err != nil {
			return idmap.UserRecord{}, err
		}
		return b.userRecord(acct), nil

	case idmap.AttrPrincipal:
		return b.lookupPrincipal(l.Value.Text())

	default:
		return idmap.UserRecord{}, idmap.ErrNotFound
	}
}

func (b *Backend) LookupGroup(ctx context.Context, l idmap.Lookup) (idmap.GroupRecord, error) {
	if err := ctx.Err(); err != nil {
		return idmap.GroupRecord{}, err
	}

	var (
		acct Account
		err  error
	)
	switch l.Attr {
	case idmap.AttrGroupName:
		acct, err = b.funcs.GroupByName(l.Value.Text())
	case idmap.AttrGID:
		acct, err = b.funcs.GroupByID(l.Value.Number())
	default:
		return idmap.GroupRecord{}, idmap.ErrNotFound
	}
	if err != nil {
		return idmap.GroupRecord{}, err
	}
	return idmap.GroupRecord{Name: acct.Name, GID: acct.GID}, nil
}

func (b *Backend) Close() error { return nil }

// lookupPrincipal resolves bare@domain principals: strip the suffix,
// resolve the bare name, then require that rebuilding the principal
// from the resolved name and the local domain reproduces the input
// exactly. Anything else is a foreign principal and stays unresolved.
func (b *Backend) lookupPrincipal(principal string) (idmap.UserRecord, error) {
	if b.domain == "" {
		return idmap.UserRecord{}, idmap.ErrNotFound
	}

	bare, _, found := strings.Cut(principal, "@")
	if !found || bare == "" {
		return idmap.UserRecord{}, idmap.ErrNotFound
	}

	acct, err := b.funcs.UserByName(bare)
	if err != nil {
		return idmap.UserRecord{}, err
	}

	if acct.Name+"@"+b.domain != principal {
		logger.Debug("principal domain mismatch", "principal", principal, "domain", b.domain)
		return idmap.UserRecord{}, idmap.ErrNotFound
	}

	rec := b.userRecord(acct)
	rec.Principal = principal
	return rec, nil
}

func (b *Backend) userRecord(acct Account) idmap.UserRecord {
	rec := idmap.UserRecord{
		Username: acct.Name,
		UID:      acct.UID,
		GID:      acct.GID,
	}
	if b.domain != "" {
		rec.Principal = acct.Name + "@" + b.domain
	}
	return rec
}

