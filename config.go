package ipwry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	defaultDataDir = "data"
	defaultV4File  = "qqwry.dat"
	defaultV6File  = "ipv6wry.db"
)

// Config locates the databases and parser tables.
type Config struct {
	DataDir        string `toml:"data_dir"`        // directory holding both databases
	V4Path         string `toml:"v4_path"`         // overrides <data_dir>/qqwry.dat
	V6Path         string `toml:"v6_path"`         // overrides <data_dir>/ipv6wry.db
	DictionaryPath string `toml:"dictionary_path"` // optional parser tables
	WithOriginal   bool   `toml:"with_original"`   // attach raw text to results
	LogLevel       string `toml:"log_level"`       // critical, error, warning, notice, info or debug
	LogFile        string `toml:"log_file"`        // defaults to stderr
	Debug          bool   `toml:"debug"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	c := &Config{DataDir: defaultDataDir}
	c.applyEnv()
	return c
}

// LoadConfig reads a TOML config file over the defaults, then applies
// the IPWRY_* environment overrides.
func LoadConfig(filename string) (*Config, error) {
	c := &Config{DataDir: defaultDataDir}
	if _, err := toml.DecodeFile(filename, c); err != nil {
		return nil, fmt.Errorf("could not load config file from %q: %w", filename, err)
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("IPWRY_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("IPWRY_V4_PATH"); v != "" {
		c.V4Path = v
	}
	if v := os.Getenv("IPWRY_V6_PATH"); v != "" {
		c.V6Path = v
	}
	if v := os.Getenv("IPWRY_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// IPv4Path returns the QQWry database path.
func (c *Config) IPv4Path() string {
	if c.V4Path != "" {
		return c.V4Path
	}
	return filepath.Join(c.DataDir, defaultV4File)
}

// IPv6Path returns the IPv6Wry database path.
func (c *Config) IPv6Path() string {
	if c.V6Path != "" {
		return c.V6Path
	}
	return filepath.Join(c.DataDir, defaultV6File)
}

// Parser builds the hierarchy parser described by the config.
func (c *Config) Parser() (*Parser, error) {
	dict := DefaultDictionary()
	if c.DictionaryPath != "" {
		var err error
		if dict, err = LoadDictionary(c.DictionaryPath); err != nil {
			return nil, err
		}
	}
	p := NewParser(dict)
	p.WithOriginal = c.WithOriginal
	return p, nil
}
