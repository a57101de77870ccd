// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package config defines the configuration surface of a karn
// checker instance. A configuration is a set of keys corresponding
// to toplevel keys in a YAML document:
//
//	logger: debug
//	maxdepth: 1024
//	maxsteps: 2000000
//	unfold:
//	  - int.ge
//	  - int.lt
//
// Keys not understood by this package are preserved, so embedders
// can carry their own configuration in the same document.
package config

import (
	"io/ioutil"
	golog "log"
	"os"

	"github.com/grailbio/karn/errors"
	"github.com/grailbio/karn/log"
	yaml "gopkg.in/yaml.v2"
)

// The keys interpreted by Config.
const (
	// Logger configures the logging level: one of "off", "error",
	// "info", or "debug".
	Logger = "logger"
	// MaxDepth configures the unification recursion budget.
	MaxDepth = "maxdepth"
	// MaxSteps configures the normalization step budget.
	MaxSteps = "maxsteps"
	// Unfold restricts delta reduction to the listed definitions.
	// When absent, all non-opaque definitions unfold.
	Unfold = "unfold"
)

// Defaults for the budget keys.
const (
	DefaultMaxDepth = 1 << 10
	DefaultMaxSteps = 1 << 22
)

// Keys is a map of string keys to configuration values.
type Keys map[string]interface{}

// A Config holds a parsed configuration. The zero value is a valid
// configuration with all defaults.
type Config struct {
	Keys
}

// Parse parses the YAML document b into a Config.
func Parse(b []byte) (*Config, error) {
	c := &Config{Keys: make(Keys)}
	if err := yaml.Unmarshal(b, &c.Keys); err != nil {
		return nil, errors.E("config.parse", errors.Invalid, err)
	}
	return c, nil
}

// ParseFile parses the YAML configuration file at path.
func ParseFile(path string) (*Config, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.E("config.parsefile", path, err)
	}
	return Parse(b)
}

// Marshal renders the configuration as a YAML document.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c.Keys)
}

func (c *Config) intKey(key string, dflt int) int {
	if c == nil || c.Keys == nil {
		return dflt
	}
	v, ok := c.Keys[key]
	if !ok {
		return dflt
	}
	n, ok := v.(int)
	if !ok || n <= 0 {
		return dflt
	}
	return n
}

// MaxDepth returns the configured unification recursion budget.
func (c *Config) MaxDepth() int {
	return c.intKey(MaxDepth, DefaultMaxDepth)
}

// MaxSteps returns the configured normalization step budget.
func (c *Config) MaxSteps() int {
	return c.intKey(MaxSteps, DefaultMaxSteps)
}

// Unfoldable returns the configured unfoldable definition set, or
// nil when all non-opaque definitions may unfold.
func (c *Config) Unfoldable() []string {
	if c == nil || c.Keys == nil {
		return nil
	}
	v, ok := c.Keys[Unfold]
	if !ok {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var names []string
	for _, e := range list {
		if s, ok := e.(string); ok {
			names = append(names, s)
		}
	}
	return names
}

// Logger returns a logger at the configured level.
func (c *Config) Logger() (*log.Logger, error) {
	name := "info"
	if c != nil && c.Keys != nil {
		if v, ok := c.Keys[Logger]; ok {
			s, ok := v.(string)
			if !ok {
				return nil, errors.E("config.logger", errors.Invalid,
					errors.Errorf("non-string logger level %v", v))
			}
			name = s
		}
	}
	var level log.Level
	switch name {
	case "off":
		level = log.OffLevel
	case "error":
		level = log.ErrorLevel
	case "info":
		level = log.InfoLevel
	case "debug":
		level = log.DebugLevel
	default:
		return nil, errors.E("config.logger", name, errors.Invalid)
	}
	return log.New(golog.New(os.Stderr, "", golog.LstdFlags), level), nil
}
