package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Version is the current version of the config format.
// This will change whenever we make breaking changes to the config format.
const Version = 1

// Warden contains all the config used by a voicewarden process.
// Relative paths are resolved relative to the current working directory.
type Warden struct {
	// The version of the configuration file. If the version in a file doesn't
	// match the current version then we can give a clear error message telling
	// the user to update their config file to the current version.
	Version int `yaml:"version"`

	Global     Global     `yaml:"global"`
	Dispatch   Dispatch   `yaml:"dispatch"`
	Moderation Moderation `yaml:"moderation"`

	// The set of configured logging hooks, e.g. to write logs to files on
	// top of stderr.
	Logging []LogrusHook `yaml:"logging"`
}

func (c *Warden) Defaults(generate bool) {
	c.Version = Version
	c.Global.Defaults(generate)
	c.Dispatch.Defaults()
	c.Moderation.Defaults()
}

func (c *Warden) Verify(configErrs *ConfigErrors) {
	for _, c := range []verifiable{&c.Global, &c.Dispatch, &c.Moderation} {
		c.Verify(configErrs)
	}
}

type verifiable interface {
	Verify(configErrs *ConfigErrors)
}

// Load a yaml config file, verifying it against the current config version.
func Load(configPath string) (*Warden, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	return loadConfig(configData)
}

func loadConfig(configData []byte) (*Warden, error) {
	var c Warden
	c.Defaults(false)
	if err := yaml.UnmarshalStrict(configData, &c); err != nil {
		return nil, err
	}
	if c.Version != Version {
		return nil, fmt.Errorf(
			"config version is %d, expected %d - check documentation for possible breaking changes",
			c.Version, Version,
		)
	}
	var configErrs ConfigErrors
	c.Verify(&configErrs)
	if len(configErrs) > 0 {
		return nil, configErrs
	}
	return &c, nil
}

// A ConfigErrors stores problems encountered when parsing a config file.
// It implements the error interface.
type ConfigErrors []string

// Add appends an error to the list of errors in this ConfigErrors.
// It is a wrapper to the builtin append and hides pointers from
// the client code.
// This method is safe to use with an uninitialized ConfigErrors because
// if it is nil, it will be properly allocated.
func (errs *ConfigErrors) Add(str string) {
	*errs = append(*errs, str)
}

// Error returns a string detailing how many errors were contained within a
// ConfigErrors type.
func (errs ConfigErrors) Error() string {
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Sprintf(
		"%s (and %d other problems)", errs[0], len(errs)-1,
	)
}

// checkNotEmpty verifies the given value is not empty in the configuration.
// If it is, adds an error to the list.
func checkNotEmpty(configErrs *ConfigErrors, key, value string) {
	if value == "" {
		configErrs.Add(fmt.Sprintf("missing config key %q", key))
	}
}

// checkPositive verifies the given value is positive (zero included)
// in the configuration. If it is not, adds an error to the list.
func checkPositive(configErrs *ConfigErrors, key string, value int64) {
	if value < 0 {
		configErrs.Add(fmt.Sprintf("invalid value for config key %q: %d", key, value))
	}
}

// A Path on the filesystem.
type Path string

// A DataSource for opening a database, e.g. file:voicewarden.db.
type DataSource string
