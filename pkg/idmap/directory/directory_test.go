package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/marmos91/idmapd/pkg/idmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSearcher records requests and serves canned results.
type fakeSearcher struct {
	lastRequest *ldap.SearchRequest
	result      *ldap.SearchResult
	err         error
	closed      bool
}

func (f *fakeSearcher) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeSearcher) Close() error {
	f.closed = true
	return nil
}

func posixConfig(t *testing.T) *idmap.Config {
	t.Helper()
	cfg, err := idmap.LoadConfig([]idmap.Pair{
		{Key: "ldap_base", Value: "dc=example,dc=com"},
		{Key: "ldap_class_users", Value: "posixAccount"},
		{Key: "ldap_class_groups", Value: "posixGroup"},
		{Key: "ldap_attr_username", Value: "uid"},
		{Key: "ldap_attr_groupname", Value: "cn"},
	})
	require.NoError(t, err)
	return cfg
}

func entries(e ...*ldap.Entry) *ldap.SearchResult {
	return &ldap.SearchResult{Entries: e}
}

func TestLookupUser(t *testing.T) {
	fake := &fakeSearcher{result: entries(ldap.NewEntry("uid=alice,dc=example,dc=com",
		map[string][]string{
			"uid":         {"alice"},
			"uidNumber":   {"1000"},
			"gidNumber":   {"2000"},
			"gssAuthName": {"alice@EXAMPLE.COM"},
		}))}
	b := &Backend{cfg: posixConfig(t), conn: fake}

	rec, err := b.LookupUser(context.Background(), idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrUserName,
		Value: idmap.StringValue("alice"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Username)
	assert.Equal(t, "alice@EXAMPLE.COM", rec.Principal)
	assert.Equal(t, uint32(1000), rec.UID)
	assert.Equal(t, uint32(2000), rec.GID)

	require.NotNil(t, fake.lastRequest)
	assert.Equal(t, "dc=example,dc=com", fake.lastRequest.BaseDN)
	assert.Equal(t, ldap.ScopeWholeSubtree, fake.lastRequest.Scope)
	assert.Equal(t, "(&(objectClass=posixAccount)(uid=alice))", fake.lastRequest.Filter)
	assert.ElementsMatch(t, []string{"uid", "uidNumber", "gidNumber", "gssAuthName"},
		fake.lastRequest.Attributes)
}

func TestLookupUserPrincipalOptional(t *testing.T) {
	fake := &fakeSearcher{result: entries(ldap.NewEntry("uid=bob,dc=example,dc=com",
		map[string][]string{
			"uid":       {"bob"},
			"uidNumber": {"1001"},
			"gidNumber": {"1001"},
		}))}
	b := &Backend{cfg: posixConfig(t), conn: fake}

	rec, err := b.LookupUser(context.Background(), idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrUID,
		Value: idmap.NumberValue(1001),
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", rec.Username)
	assert.Empty(t, rec.Principal)
}

func TestLookupUserNoEntries(t *testing.T) {
	fake := &fakeSearcher{result: entries()}
	b := &Backend{cfg: posixConfig(t), conn: fake}

	_, err := b.LookupUser(context.Background(), idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrUserName,
		Value: idmap.StringValue("ghost"),
	})
	assert.ErrorIs(t, err, idmap.ErrNotFound)
}

func TestLookupUserFirstEntryWins(t *testing.T) {
	fake := &fakeSearcher{result: entries(
		ldap.NewEntry("uid=alice,ou=a,dc=example,dc=com", map[string][]string{
			"uid": {"alice"}, "uidNumber": {"1000"}, "gidNumber": {"1000"},
		}),
		ldap.NewEntry("uid=alice,ou=b,dc=example,dc=com", map[string][]string{
			"uid": {"alice"}, "uidNumber": {"9999"}, "gidNumber": {"9999"},
		}),
	)}
	b := &Backend{cfg: posixConfig(t), conn: fake}

	rec, err := b.LookupUser(context.Background(), idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrUserName,
		Value: idmap.StringValue("alice"),
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), rec.UID)
}

func TestLookupUserMissingRequiredAttribute(t *testing.T) {
	fake := &fakeSearcher{result: entries(ldap.NewEntry("uid=alice,dc=example,dc=com",
		map[string][]string{
			"uid":       {"alice"},
			"uidNumber": {"1000"},
			// gidNumber absent
		}))}
	b := &Backend{cfg: posixConfig(t), conn: fake}

	_, err := b.LookupUser(context.Background(), idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrUserName,
		Value: idmap.StringValue("alice"),
	})

	var missing *idmap.MissingAttributeError
	require.True(t, errors.As(err, &missing), "expected MissingAttributeError, got %v", err)
	assert.Equal(t, "gidNumber", missing.Attr)
	assert.Contains(t, missing.Filter, "uid=alice")
}

func TestLookupUserInvalidID(t *testing.T) {
	fake := &fakeSearcher{result: entries(ldap.NewEntry("uid=alice,dc=example,dc=com",
		map[string][]string{
			"uid":       {"alice"},
			"uidNumber": {"not-a-number"},
			"gidNumber": {"1000"},
		}))}
	b := &Backend{cfg: posixConfig(t), conn: fake}

	_, err := b.LookupUser(context.Background(), idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrUserName,
		Value: idmap.StringValue("alice"),
	})

	var invalid *idmap.InvalidAttributeError
	require.True(t, errors.As(err, &invalid), "expected InvalidAttributeError, got %v", err)
	assert.Equal(t, "uidNumber", invalid.Attr)
	assert.Equal(t, "not-a-number", invalid.Value)
}

func TestLookupGroup(t *testing.T) {
	fake := &fakeSearcher{result: entries(ldap.NewEntry("cn=staff,dc=example,dc=com",
		map[string][]string{
			"cn":        {"staff"},
			"gidNumber": {"2000"},
		}))}
	b := &Backend{cfg: posixConfig(t), conn: fake}

	rec, err := b.LookupGroup(context.Background(), idmap.Lookup{
		Class: idmap.ClassGroup,
		Attr:  idmap.AttrGroupName,
		Value: idmap.StringValue("staff"),
	})
	require.NoError(t, err)
	assert.Equal(t, "staff", rec.Name)
	assert.Equal(t, uint32(2000), rec.GID)
	assert.Equal(t, "(&(objectClass=posixGroup)(cn=staff))", fake.lastRequest.Filter)
}

func TestLookupGroupByGID(t *testing.T) {
	fake := &fakeSearcher{result: entries(ldap.NewEntry("cn=staff,dc=example,dc=com",
		map[string][]string{
			"cn":        {"staff"},
			"gidNumber": {"2000"},
		}))}
	b := &Backend{cfg: posixConfig(t), conn: fake}

	rec, err := b.LookupGroup(context.Background(), idmap.Lookup{
		Class: idmap.ClassGroup,
		Attr:  idmap.AttrGID,
		Value: idmap.NumberValue(2000),
	})
	require.NoError(t, err)
	assert.Equal(t, "staff", rec.Name)
	assert.Equal(t, "(&(objectClass=posixGroup)(gidNumber=2000))", fake.lastRequest.Filter)
}

func TestQueryCancelledContext(t *testing.T) {
	fake := &fakeSearcher{result: entries()}
	b := &Backend{cfg: posixConfig(t), conn: fake}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.LookupUser(ctx, idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrUserName,
		Value: idmap.StringValue("alice"),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, fake.lastRequest, "cancelled context must not reach the server")
}

func TestNewRejectsUnsupportedVersion(t *testing.T) {
	cfg, err := idmap.LoadConfig([]idmap.Pair{{Key: "ldap_version", Value: "2"}})
	require.NoError(t, err)

	_, err = New(cfg)
	var connErr *idmap.ConnectionError
	require.True(t, errors.As(err, &connErr), "expected ConnectionError, got %v", err)
}

func TestBackendClose(t *testing.T) {
	fake := &fakeSearcher{}
	b := &Backend{cfg: posixConfig(t), conn: fake}

	require.NoError(t, b.Close())
	assert.True(t, fake.closed)
}
