package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateResolverLocal(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Idmap.LocalDomain = "example.com"

	r, err := cfg.CreateResolver(nil)
	require.NoError(t, err)
	defer r.Close()

	// The resolver is wired to the OS account database; root exists on
	// any system these tests run on.
	name, err := r.UIDToName(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "root", name)
}

func TestCreateResolverLoadsSchemaConf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idmapd.conf")
	require.NoError(t, os.WriteFile(path, []byte("cache_ttl = 42\n"), 0600))

	cfg := GetDefaultConfig()
	cfg.Idmap.ConfPath = path

	r, err := cfg.CreateResolver(nil)
	require.NoError(t, err)
	defer r.Close()
}

func TestCreateResolverBadSchemaConf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idmapd.conf")
	require.NoError(t, os.WriteFile(path, []byte("not_an_option = 1\n"), 0600))

	cfg := GetDefaultConfig()
	cfg.Idmap.ConfPath = path

	_, err := cfg.CreateResolver(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_an_option")
}

func TestCreateBackendUnknownSource(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Idmap.Source = "nis"

	_, err := cfg.CreateResolver(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown idmap source")
}
