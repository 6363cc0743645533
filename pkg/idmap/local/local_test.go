package local

import (
	"context"
	"fmt"
	"os/user"
	"testing"

	"github.com/marmos91/idmapd/pkg/idmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notFound(what string) error {
	return fmt.Errorf("%w: %s", idmap.ErrNotFound, what)
}

// fakeFuncs serves a fixed user and group.
func fakeFuncs() Funcs {
	alice := Account{Name: "alice", UID: 1000, GID: 1000}
	staff := Account{Name: "staff", GID: 100}

	return Funcs{
		UserByName: func(name string) (Account, error) {
			if name == "alice" {
				return alice, nil
			}
			return Account{}, notFound(name)
		},
		UserByID: func(uid uint32) (Account, error) {
			if uid == 1000 {
				return alice, nil
			}
			return Account{}, notFound("uid")
		},
		GroupByName: func(name string) (Account, error) {
			if name == "staff" {
				return staff, nil
			}
			return Account{}, notFound(name)
		},
		GroupByID: func(gid uint32) (Account, error) {
			if gid == 100 {
				return staff, nil
			}
			return Account{}, notFound("gid")
		},
	}
}

func TestLookupUserByName(t *testing.T) {
	b := NewWithFuncs("localdomain", fakeFuncs())

	rec, err := b.LookupUser(context.Background(), idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrUserName,
		Value: idmap.StringValue("alice"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Username)
	assert.Equal(t, "alice@localdomain", rec.Principal)
	assert.Equal(t, uint32(1000), rec.UID)
	assert.Equal(t, uint32(1000), rec.GID)
}

func TestLookupUserByUID(t *testing.T) {
	b := NewWithFuncs("localdomain", fakeFuncs())

	rec, err := b.LookupUser(context.Background(), idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrUID,
		Value: idmap.NumberValue(1000),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Username)
}

func TestLookupUserUnknown(t *testing.T) {
	b := NewWithFuncs("localdomain", fakeFuncs())

	_, err := b.LookupUser(context.Background(), idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrUserName,
		Value: idmap.StringValue("ghost"),
	})
	assert.ErrorIs(t, err, idmap.ErrNotFound)
}

func TestLookupPrincipal(t *testing.T) {
	b := NewWithFuncs("localdomain", fakeFuncs())

	rec, err := b.LookupUser(context.Background(), idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrPrincipal,
		Value: idmap.StringValue("alice@localdomain"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Username)
	assert.Equal(t, "alice@localdomain", rec.Principal)
	assert.Equal(t, uint32(1000), rec.UID)
}

func TestLookupPrincipalForeignDomain(t *testing.T) {
	b := NewWithFuncs("localdomain", fakeFuncs())

	_, err := b.LookupUser(context.Background(), idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrPrincipal,
		Value: idmap.StringValue("alice@OTHER.REALM"),
	})
	assert.ErrorIs(t, err, idmap.ErrNotFound)
}

func TestLookupPrincipalMalformed(t *testing.T) {
	b := NewWithFuncs("localdomain", fakeFuncs())

	for _, principal := range []string{"alice", "@localdomain", ""} {
		_, err := b.LookupUser(context.Background(), idmap.Lookup{
			Class: idmap.ClassUser,
			Attr:  idmap.AttrPrincipal,
			Value: idmap.StringValue(principal),
		})
		assert.ErrorIs(t, err, idmap.ErrNotFound, "principal %q", principal)
	}
}

func TestEmptyDomainDisablesPrincipals(t *testing.T) {
	b := NewWithFuncs("", fakeFuncs())

	_, err := b.LookupUser(context.Background(), idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrPrincipal,
		Value: idmap.StringValue("alice@localdomain"),
	})
	assert.ErrorIs(t, err, idmap.ErrNotFound)

	// Name lookups still work, just without a synthesized principal.
	rec, err := b.LookupUser(context.Background(), idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrUserName,
		Value: idmap.StringValue("alice"),
	})
	require.NoError(t, err)
	assert.Empty(t, rec.Principal)
}

func TestLookupGroupByName(t *testing.T) {
	b := NewWithFuncs("localdomain", fakeFuncs())

	rec, err := b.LookupGroup(context.Background(), idmap.Lookup{
		Class: idmap.ClassGroup,
		Attr:  idmap.AttrGroupName,
		Value: idmap.StringValue("staff"),
	})
	require.NoError(t, err)
	assert.Equal(t, "staff", rec.Name)
	assert.Equal(t, uint32(100), rec.GID)
}

func TestLookupGroupByGID(t *testing.T) {
	b := NewWithFuncs("localdomain", fakeFuncs())

	rec, err := b.LookupGroup(context.Background(), idmap.Lookup{
		Class: idmap.ClassGroup,
		Attr:  idmap.AttrGID,
		Value: idmap.NumberValue(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "staff", rec.Name)
}

func TestLookupCancelledContext(t *testing.T) {
	b := NewWithFuncs("localdomain", fakeFuncs())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.LookupUser(ctx, idmap.Lookup{
		Class: idmap.ClassUser,
		Attr:  idmap.AttrUserName,
		Value: idmap.StringValue("alice"),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapUserErr(t *testing.T) {
	assert.ErrorIs(t, mapUserErr(user.UnknownUserError("ghost")), idmap.ErrNotFound)
	assert.ErrorIs(t, mapUserErr(user.UnknownUserIdError(99999)), idmap.ErrNotFound)
	assert.ErrorIs(t, mapUserErr(user.UnknownGroupError("ghost")), idmap.ErrNotFound)
	assert.ErrorIs(t, mapUserErr(user.UnknownGroupIdError("99999")), idmap.ErrNotFound)

	other := fmt.Errorf("nss backend down")
	assert.Equal(t, other, mapUserErr(other))
}

func TestParseOSID(t *testing.T) {
	n, err := parseOSID("uid", "1000")
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), n)

	_, err = parseOSID("uid", "S-1-5-21-1234")
	var invalid *idmap.InvalidAttributeError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "uid", invalid.Attr)
}
