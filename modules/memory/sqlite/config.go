package sqlite

import "errors"

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "engram.db"
)

// Config is the module's YAML surface.
type Config struct {
	// Path of the database file. Empty means {DataDir}/engram.db.
	Path string `yaml:"path"`

	// WAL toggles write-ahead logging. Unset means on; turn it off only
	// where the filesystem cannot support WAL.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is how long a locked database is retried, in
	// milliseconds. Zero means 5000.
	BusyTimeout int `yaml:"busy_timeout"`
}

func (c *Config) fill() {
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) check() error {
	if c.BusyTimeout < 0 {
		return errors.New("sqlite: busy_timeout cannot be negative")
	}
	return nil
}
