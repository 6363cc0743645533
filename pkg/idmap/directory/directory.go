// Package directory implements the LDAP identity backend. Queries are
// built from the schema configuration: one subtree search per lookup,
// filter (&(objectClass=<class>)(<attr>=<value>)), first entry wins.
package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/marmos91/idmapd/internal/logger"
	"github.com/marmos91/idmapd/pkg/idmap"
)

// searcher is the slice of *ldap.Conn the backend uses. Tests supply a
// fake; production code always holds a real connection.
type searcher interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

// Backend resolves identities against an LDAP directory over a single
// connection. go-ldap multiplexes concurrent requests on one Conn, so
// the backend needs no locking of its own.
type Backend struct {
	cfg  *idmap.Config
	conn searcher
}

var _ idmap.Backend = (*Backend)(nil)

// New dials the configured directory server and authenticates the
// session. Construction fails with a ConnectionError when the server
// is unreachable or the bind is rejected.
func New(cfg *idmap.Config) (*Backend, error) {
	if cfg.Version != 3 {
		return nil, &idmap.ConnectionError{
			Addr: cfg.Addr(),
			Err:  fmt.Errorf("ldap_version %d not supported, only version 3", cfg.Version),
		}
	}

	conn, err := ldap.DialURL("ldap://" + cfg.Addr())
	if err != nil {
		return nil, &idmap.ConnectionError{Addr: cfg.Addr(), Err: err}
	}
	if cfg.Timeout > 0 {
		conn.SetTimeout(time.Duration(cfg.Timeout) * time.Second)
	}

	if err := bind(conn, cfg); err != nil {
		_ = conn.Close()
		return nil, &idmap.ConnectionError{Addr: cfg.Addr(), Err: err}
	}

	logger.Info("directory session established",
		"addr", cfg.Addr(), "base", cfg.Base, "sasl", cfg.SASL)
	return &Backend{cfg: cfg, conn: conn}, nil
}

// bind authenticates the session. An empty bind DN with no SASL
// mechanism leaves the session anonymous, which matches the defaults.
func bind(conn *ldap.Conn, cfg *idmap.Config) error {
	switch {
	case cfg.SASL == "gssapi":
		return gssapiBind(conn, cfg)
	case cfg.SASL != "":
		return fmt.Errorf("unsupported SASL mechanism %q", cfg.SASL)
	case cfg.BindDN != "":
		return conn.Bind(cfg.BindDN, cfg.BindPassword)
	default:
		return nil
	}
}

// LookupUser queries the directory for one user entry. The username,
// uid and gid attributes are required; the principal attribute is
// optional and left empty when the entry lacks it.
func (b *Backend) LookupUser(ctx context.Context, l idmap.Lookup) (idmap.UserRecord, error) {
	values, err := b.query(ctx, l,
		[]idmap.Attr{idmap.AttrUserName, idmap.AttrUID, idmap.AttrGID},
		[]idmap.Attr{idmap.AttrPrincipal})
	if err != nil {
		return idmap.UserRecord{}, err
	}

	if err := checkLen("username", values[idmap.AttrUserName]); err != nil {
		return idmap.UserRecord{}, err
	}
	if err := checkLen("principal", values[idmap.AttrPrincipal]); err != nil {
		return idmap.UserRecord{}, err
	}
	uid, err := b.parseIDAttr(idmap.AttrUID, values[idmap.AttrUID])
	if err != nil {
		return idmap.UserRecord{}, err
	}
	gid, err := b.parseIDAttr(idmap.AttrGID, values[idmap.AttrGID])
	if err != nil {
		return idmap.UserRecord{}, err
	}

	return idmap.UserRecord{
		Username:  values[idmap.AttrUserName],
		Principal: values[idmap.AttrPrincipal],
		UID:       uid,
		GID:       gid,
	}, nil
}

// LookupGroup queries the directory for one group entry.
func (b *Backend) LookupGroup(ctx context.Context, l idmap.Lookup) (idmap.GroupRecord, error) {
	values, err := b.query(ctx, l,
		[]idmap.Attr{idmap.AttrGroupName, idmap.AttrGID}, nil)
	if err != nil {
		return idmap.GroupRecord{}, err
	}

	if err := checkLen("groupname", values[idmap.AttrGroupName]); err != nil {
		return idmap.GroupRecord{}, err
	}
	gid, err := b.parseIDAttr(idmap.AttrGID, values[idmap.AttrGID])
	if err != nil {
		return idmap.GroupRecord{}, err
	}

	return idmap.GroupRecord{
		Name: values[idmap.AttrGroupName],
		GID:  gid,
	}, nil
}

// Close releases the directory connection.
func (b *Backend) Close() error {
	return b.conn.Close()
}

// query runs one subtree search and extracts the configured attribute
// values from the first matching entry.
func (b *Backend) query(ctx context.Context, l idmap.Lookup, required, optional []idmap.Attr) (map[idmap.Attr]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter, err := buildFilter(b.cfg, l)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(required)+len(optional))
	for _, a := range required {
		names = append(names, b.cfg.AttributeName(a))
	}
	for _, a := range optional {
		names = append(names, b.cfg.AttributeName(a))
	}

	req := ldap.NewSearchRequest(
		b.cfg.Base,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // no size limit, the first entry wins
		int(b.cfg.Timeout),
		false,
		filter,
		names,
		nil,
	)

	res, err := b.conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, fmt.Errorf("search base %q: %w", b.cfg.Base, idmap.ErrNotFound)
		}
		return nil, fmt.Errorf("directory search %s: %w", filter, err)
	}
	if len(res.Entries) == 0 {
		return nil, idmap.ErrNotFound
	}

	logger.Debug("directory search", "filter", filter, "entries", len(res.Entries))
	entry := res.Entries[0]

	values := make(map[idmap.Attr]string, len(required)+len(optional))
	for _, a := range required {
		name := b.cfg.AttributeName(a)
		v := entry.GetAttributeValue(name)
		if v == "" {
			return nil, &idmap.MissingAttributeError{Attr: name, Filter: filter}
		}
		values[a] = v
	}
	for _, a := range optional {
		values[a] = entry.GetAttributeValue(b.cfg.AttributeName(a))
	}
	return values, nil
}

func (b *Backend) parseIDAttr(a idmap.Attr, v string) (uint32, error) {
	n, ok := idmap.ParseID(v)
	if !ok {
		return 0, &idmap.InvalidAttributeError{Attr: b.cfg.AttributeName(a), Value: v}
	}
	return n, nil
}

func checkLen(what, v string) error {
	if len(v) > idmap.ValueMaxLen {
		return &idmap.OverflowError{What: what + " attribute value", Limit: idmap.ValueMaxLen}
	}
	return nil
}
