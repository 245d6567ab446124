// Package config loads toolchain-wide defaults (verbosity, color,
// default output paths) from an optional .mips32.yaml
// project file, environment variables, and command-line flags, in
// that order of increasing precedence.
package config

import (
	"strings"

	"github.com/spf13/viper"
	env "github.com/xyproto/env/v2"
)

// Settings holds the ambient configuration shared by all three CLI
// binaries. None of its fields affect MIPS semantics; they only tune
// tool ergonomics (verbosity, color, default paths).
type Settings struct {
	Verbose             bool
	Color               bool
	AssemblerDefaultOut string
	LinkerDefaultOut    string
}

// Load reads .mips32.yaml (if present in the working directory; parent
// directories are not searched) and overlays it with the
// MIPS32_VERBOSE / MIPS32_COLOR environment variables, returning the
// merged Settings. Flags parsed by cobra are applied afterward by the
// caller, since they must win over everything else.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetConfigName(".mips32")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("mips32")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("verbose", false)
	v.SetDefault("color", true)
	v.SetDefault("assembler.default_output", "a.mobj")
	v.SetDefault("linker.default_output", "a.out")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	s := &Settings{
		Verbose:             v.GetBool("verbose") || env.BoolOr("MIPS32_VERBOSE", false),
		Color:               v.GetBool("color") && env.BoolOr("MIPS32_COLOR", true),
		AssemblerDefaultOut: v.GetString("assembler.default_output"),
		LinkerDefaultOut:    v.GetString("linker.default_output"),
	}
	return s, nil
}
