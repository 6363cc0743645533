package idmap

import (
	"fmt"
	"strings"
	"time"
)

const (
	hostnameMaxLen = 255
	baseMaxLen     = 256
)

// Config is the schema configuration shared by the resolver and its
// backend. It is loaded once at construction and never mutated
// afterwards, so concurrent readers need no locking.
type Config struct {
	Hostname string
	Port     uint32
	Version  uint32
	Timeout  uint32 // seconds, 0 means no client-side timeout
	Base     string

	// Bind credentials. Empty BindDN and SASL means anonymous bind.
	BindDN       string
	BindPassword string
	SASL         string // "" or "gssapi"
	Krb5Conf     string
	Krb5Realm    string

	// CacheTTL is the record freshness window in seconds. Zero
	// disables caching entirely.
	CacheTTL uint32

	// LocalDomain is supplied by the caller, not by a conf option. The
	// local backend uses it to validate principal suffixes.
	LocalDomain string

	classes    [numClasses]string
	attributes [numAttrs]string
}

// ClassName returns the configured directory object class for cl.
func (c *Config) ClassName(cl Class) string { return c.classes[cl] }

// AttributeName returns the configured directory attribute name for a.
func (c *Config) AttributeName(a Attr) string { return c.attributes[a] }

// TTL returns the freshness window as a duration.
func (c *Config) TTL() time.Duration { return time.Duration(c.CacheTTL) * time.Second }

// Addr returns the directory server address in host:port form.
func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.Hostname, c.Port) }

type optionKind int

const (
	optString optionKind = iota
	optUint
)

// option is one row of the fixed schema option table. Exactly one of
// def/defNum is meaningful depending on kind.
type option struct {
	key    string
	kind   optionKind
	def    string
	defNum uint32
	maxLen int
	assign func(c *Config, s string, n uint32)
}

var options = []option{
	{key: "ldap_hostname", kind: optString, def: "localhost", maxLen: hostnameMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.Hostname = s }},
	{key: "ldap_port", kind: optUint, defNum: 389,
		assign: func(c *Config, _ string, n uint32) { c.Port = n }},
	{key: "ldap_version", kind: optUint, defNum: 3,
		assign: func(c *Config, _ string, n uint32) { c.Version = n }},
	{key: "ldap_timeout", kind: optUint, defNum: 0,
		assign: func(c *Config, _ string, n uint32) { c.Timeout = n }},
	{key: "ldap_base", kind: optString, def: "cn=localhost", maxLen: baseMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.Base = s }},
	{key: "ldap_class_users", kind: optString, def: "user", maxLen: NameMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.classes[ClassUser] = s }},
	{key: "ldap_class_groups", kind: optString, def: "group", maxLen: NameMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.classes[ClassGroup] = s }},
	{key: "ldap_attr_username", kind: optString, def: "cn", maxLen: NameMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.attributes[AttrUserName] = s }},
	{key: "ldap_attr_groupname", kind: optString, def: "cn", maxLen: NameMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.attributes[AttrGroupName] = s }},
	{key: "ldap_attr_gssAuthName", kind: optString, def: "gssAuthName", maxLen: NameMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.attributes[AttrPrincipal] = s }},
	{key: "ldap_attr_uidNumber", kind: optString, def: "uidNumber", maxLen: NameMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.attributes[AttrUID] = s }},
	{key: "ldap_attr_gidNumber", kind: optString, def: "gidNumber", maxLen: NameMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.attributes[AttrGID] = s }},
	{key: "ldap_bind_dn", kind: optString, def: "", maxLen: baseMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.BindDN = s }},
	{key: "ldap_bind_pw", kind: optString, def: "", maxLen: baseMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.BindPassword = s }},
	{key: "ldap_sasl", kind: optString, def: "", maxLen: NameMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.SASL = strings.ToLower(s) }},
	{key: "ldap_krb5_conf", kind: optString, def: "/etc/krb5.conf", maxLen: baseMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.Krb5Conf = s }},
	{key: "ldap_krb5_realm", kind: optString, def: "", maxLen: hostnameMaxLen,
		assign: func(c *Config, s string, _ uint32) { c.Krb5Realm = s }},
	{key: "cache_ttl", kind: optUint, defNum: 6000,
		assign: func(c *Config, _ string, n uint32) { c.CacheTTL = n }},
}

// NewConfig returns a Config populated with the table defaults.
func NewConfig() *Config {
	c := &Config{}
	for i := range options {
		opt := &options[i]
		switch opt.kind {
		case optUint:
			opt.assign(c, "", opt.defNum)
		case optString:
			opt.assign(c, opt.def, 0)
		}
	}
	return c
}

// Set applies one option override. Keys match case-insensitively.
// Unknown keys, malformed integers and over-long strings are hard
// errors; line is carried into the error for file-sourced options.
func (c *Config) Set(key, value string, line int) error {
	for i := range options {
		opt := &options[i]
		if !strings.EqualFold(opt.key, key) {
			continue
		}
		switch opt.kind {
		case optUint:
			n, ok := ParseID(value)
			if !ok {
				return &ConfigError{Key: opt.key, Line: line, Reason: fmt.Sprintf("invalid unsigned integer %q", value)}
			}
			opt.assign(c, "", n)
		case optString:
			if len(value) > opt.maxLen {
				return &ConfigError{Key: opt.key, Line: line, Reason: fmt.Sprintf("value longer than %d bytes", opt.maxLen)}
			}
			opt.assign(c, value, 0)
		}
		return nil
	}
	return &ConfigError{Key: key, Line: line, Reason: "unknown option"}
}

// LoadConfig builds a Config from defaults plus the given overrides.
func LoadConfig(pairs []Pair) (*Config, error) {
	c := NewConfig()
	for _, p := range pairs {
		if err := c.Set(p.Key, p.Value, p.Line); err != nil {
			return nil, err
		}
	}
	return c, nil
}
