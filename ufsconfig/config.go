// SPDX-License-Identifier: MIT

// Package ufsconfig loads the process-wide configuration for embedders of
// this module: a mutex-guarded package-level singleton, creasty/defaults
// struct tags for defaulting, govalidator for field validation, and YAML
// as the on-disk format.
package ufsconfig

import (
	"os"
	"sync"

	"emperror.dev/errors"
	"github.com/asaskevich/govalidator"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v2"
)

// DefaultLocation is where Load looks for the configuration file if no
// other path is given.
const DefaultLocation = "/etc/capfs/config.yml"

var (
	mu     sync.RWMutex
	active *Config
)

// ResolverConfig holds path-resolution settings for embedders. The capfs
// resolver does not read them: it tries openat2 whenever the kernel allows
// it, and its symlink-expansion cap is the fixed value 40.
type ResolverConfig struct {
	// UseOpenat2 records whether the Linux openat2(RESOLVE_BENEATH) fast
	// path is wanted.
	UseOpenat2 bool `default:"true" yaml:"use_openat2"`
	// MaxSymlinkExpansions records how many symlinks a single path
	// resolution may expand before failing.
	MaxSymlinkExpansions int `default:"40" yaml:"max_symlink_expansions" valid:"range(1|255)"`
}

// QuotaConfig holds a default limit for newly wrapped directories, in
// bytes; 0 means unlimited. quota.New takes its limit as an argument and
// does not read this value.
type QuotaConfig struct {
	DefaultLimitBytes int64 `default:"0" yaml:"default_limit_bytes"`
}

// LogConfig controls the ambient logging stack.
type LogConfig struct {
	Level      string `default:"info" yaml:"level" valid:"in(debug|info|warn|error)"`
	NoColor    bool   `default:"false" yaml:"no_color"`
	RotateMB   int    `default:"100" yaml:"rotate_mb" valid:"range(1|10000)"`
	RotateKeep int    `default:"5" yaml:"rotate_keep" valid:"range(0|1000)"`
}

// Config is the top-level configuration record.
type Config struct {
	Resolver ResolverConfig `yaml:"resolver"`
	Quota    QuotaConfig    `yaml:"quota"`
	Log      LogConfig      `yaml:"log"`
}

// New returns a Config populated with its struct-tag defaults.
func New() (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "ufsconfig: applying defaults")
	}
	return c, nil
}

// Load reads and parses the YAML configuration at path, applying defaults
// for any field it leaves unset and validating the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultLocation
	}
	c, err := New()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "ufsconfig: reading configuration")
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrap(err, "ufsconfig: parsing configuration")
	}
	if _, err := govalidator.ValidateStruct(c); err != nil {
		return nil, errors.Wrap(err, "ufsconfig: validating configuration")
	}
	return c, nil
}

// Set installs c as the process-wide active configuration.
func Set(c *Config) {
	mu.Lock()
	defer mu.Unlock()
	active = c
}

// Get returns the active configuration, or a defaulted one if Set was
// never called.
func Get() *Config {
	mu.RLock()
	c := active
	mu.RUnlock()
	if c != nil {
		return c
	}
	c, _ = New()
	Set(c)
	return c
}
