// Package config loads the declarative topology manifest that supplements
// (never replaces) the hand-rolled -pi* flag surface parsed directly by
// Configure. A manifest lets a deployment pin service flags, check level,
// and the log file base name without touching argv, the way the teacher's
// own GlobalConfig separates static YAML config from command-line input.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Manifest mirrors the subset of Context state that a deployment may want
// to pin declaratively instead of via -pi* flags.
type Manifest struct {
	CheckLevel int             `mapstructure:"check_level"`
	Services   ServicesConfig  `mapstructure:"services"`
	Log        LogManifest     `mapstructure:"log"`
	Processes  []ProcessConfig `mapstructure:"processes"`
}

// ServicesConfig is the YAML shape of the 'c'/'d'/'j' service letters.
type ServicesConfig struct {
	Calls    bool `mapstructure:"calls"`
	Deadlock bool `mapstructure:"deadlock"`
	Trace    bool `mapstructure:"trace"`
}

// LogManifest configures the domain log pipeline's output file, distinct
// from the ambient operational logger in internal/log.
type LogManifest struct {
	BaseName string `mapstructure:"base_name"`
}

// ProcessConfig names one CreateProcess call a topology builder should
// make, letting a manifest list the processes instead of code. A manifest
// has no entries for channels or bundles.
type ProcessConfig struct {
	Name   string `mapstructure:"name"`
	Work   string `mapstructure:"work"` // registry key, resolved by the caller
	ArgInt int    `mapstructure:"arg_int"`
}

// Load reads a YAML manifest from path using viper, the way the teacher's
// config.Load wraps a single-purpose loader function.
func Load(path string) (*Manifest, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("check_level", 2)
	v.SetDefault("log.base_name", "pilot")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var m Manifest
	if err := v.Unmarshal(&m); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return &m, nil
}
