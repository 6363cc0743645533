package config

import (
	"fmt"

	"github.com/marmos91/idmapd/pkg/idmap"
	"github.com/marmos91/idmapd/pkg/idmap/directory"
	"github.com/marmos91/idmapd/pkg/idmap/local"
)

// CreateResolver assembles the identity resolver from the daemon
// configuration: schema conf file, backend per Idmap.Source, caches.
// metrics may be nil.
func (c *Config) CreateResolver(metrics idmap.Metrics) (*idmap.Resolver, error) {
	schema, err := c.loadSchema()
	if err != nil {
		return nil, err
	}

	backend, err := c.createBackend(schema)
	if err != nil {
		return nil, err
	}

	return idmap.NewResolver(schema, backend, metrics), nil
}

// loadSchema loads the identity schema conf, falling back to defaults
// when no conf file is configured. LocalDomain always comes from the
// daemon config.
func (c *Config) loadSchema() (*idmap.Config, error) {
	var (
		schema *idmap.Config
		err    error
	)
	if c.Idmap.ConfPath != "" {
		schema, err = idmap.LoadConfFile(c.Idmap.ConfPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", c.Idmap.ConfPath, err)
		}
	} else {
		schema = idmap.NewConfig()
	}
	schema.LocalDomain = c.Idmap.LocalDomain
	return schema, nil
}

func (c *Config) createBackend(schema *idmap.Config) (idmap.Backend, error) {
	switch c.Idmap.Source {
	case "directory":
		return directory.New(schema)
	case "local":
		return local.New(schema.LocalDomain), nil
	default:
		return nil, fmt.Errorf("unknown idmap source %q", c.Idmap.Source)
	}
}
