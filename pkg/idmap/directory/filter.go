package directory

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/marmos91/idmapd/pkg/idmap"
)

// MaxFilterLen bounds a synthesized search filter.
const MaxFilterLen = 1024

// buildFilter synthesizes the search filter for a lookup key:
// (&(objectClass=<class>)(<attr>=<value>)). String values are escaped
// per RFC 4515 so hostile names cannot alter the filter structure;
// numeric values render in decimal and need no escaping.
func buildFilter(cfg *idmap.Config, l idmap.Lookup) (string, error) {
	value := l.Value.Text()
	if !l.Value.IsNumber() {
		value = ldap.EscapeFilter(value)
	}

	filter := fmt.Sprintf("(&(objectClass=%s)(%s=%s))",
		cfg.ClassName(l.Class), cfg.AttributeName(l.Attr), value)
	if len(filter) > MaxFilterLen {
		return "", &idmap.OverflowError{What: "search filter", Limit: MaxFilterLen}
	}
	return filter, nil
}
