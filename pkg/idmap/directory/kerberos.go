package directory

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
	"github.com/marmos91/idmapd/pkg/idmap"
)

// gssapiBind authenticates the session with Kerberos. Credentials come
// from an existing credential cache when one is present, otherwise the
// default keytab. The service principal is ldap/<hostname>.
func gssapiBind(conn *ldap.Conn, cfg *idmap.Config) error {
	client, err := newGSSAPIClient(cfg)
	if err != nil {
		return fmt.Errorf("gssapi client: %w", err)
	}
	defer func() {
		_ = client.DeleteSecContext()
	}()

	spn := "ldap/" + cfg.Hostname
	if err := conn.GSSAPIBind(client, spn, ""); err != nil {
		return fmt.Errorf("gssapi bind as %s: %w", spn, err)
	}
	return nil
}

func newGSSAPIClient(cfg *idmap.Config) (ldap.GSSAPIClient, error) {
	krb5conf := cfg.Krb5Conf
	if !fileExists(krb5conf) {
		return nil, fmt.Errorf("krb5 configuration %s not found", krb5conf)
	}

	if ccache := defaultCCachePath(); fileExists(ccache) {
		return gssapi.NewClientFromCCache(ccache, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if keytab := defaultKeytabPath(); fileExists(keytab) {
		if cfg.Krb5Realm == "" {
			return nil, fmt.Errorf("ldap_krb5_realm is required for keytab authentication")
		}
		hostname, _ := os.Hostname()
		return gssapi.NewClientWithKeytab("host/"+hostname, cfg.Krb5Realm, keytab, krb5conf,
			krb5client.DisablePAFXFAST(true))
	}

	return nil, fmt.Errorf("no credential cache or keytab available")
}

// defaultCCachePath resolves KRB5CCNAME, falling back to the
// conventional per-uid location.
func defaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

func defaultKeytabPath() string {
	if keytab := os.Getenv("KRB5_KTNAME"); keytab != "" {
		return strings.TrimPrefix(keytab, "FILE:")
	}
	return "/etc/krb5.keytab"
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
