// Package idmap resolves NFS client identities: it maps between textual
// user/group names, Kerberos-style principal strings and numeric POSIX
// uid/gid values.
//
// The package is built around a read-through TTL cache in front of a
// pluggable Backend. The directory backend (pkg/idmap/directory) queries
// an LDAP server using a configurable schema; the local backend
// (pkg/idmap/local) falls back to the operating system account database.
package idmap
