// Package toolconfig loads the optional .remake.yaml file that carries
// ambient defaults (job parallelism, socket directory, debug server)
// the command line doesn't otherwise override.
package toolconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the config file remake looks for next to the Remakefile.
const FileName = ".remake.yaml"

// Config is the ambient, optional configuration for a remake run.
type Config struct {
	// Jobs is the default -j value when no -j/--jobs= option is given on
	// the command line. Zero means unbounded, matching the command-line
	// default.
	Jobs int `yaml:"jobs"`
	// SocketDir overrides where the request endpoint's socket
	// directory is created; empty means os.TempDir().
	SocketDir string `yaml:"socket_dir"`
	// Debug turns on verbose logging by default.
	Debug bool `yaml:"debug"`
	// LogLevel, if set, picks the logger's level directly (debug, warn,
	// error; anything else is info) and takes precedence over Debug/-d.
	LogLevel string `yaml:"log_level"`
	// History enables the sqlite build journal.
	History bool `yaml:"history"`
	// Introspect enables the loopback debug HTTP server, bound to
	// this address if non-empty (e.g. "127.0.0.1:9090").
	Introspect string `yaml:"introspect"`
}

// Load reads path, returning a zero-value Config if it does not exist.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
