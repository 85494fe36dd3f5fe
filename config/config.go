// Package config loads the settings of an agentchain node from a YAML or
// JSON file, with AGENTCHAIN_* environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"xdao.co/agentchain/instance"
	"xdao.co/agentchain/keys"
)

// EnvPrefix prefixes every environment override, e.g. AGENTCHAIN_AGENT or
// AGENTCHAIN_MAX_CALL_DEPTH.
const EnvPrefix = "AGENTCHAIN"

// Config is one node's settings. Empty paths mean "not used": no CAS config
// selects the in-memory store, no chain file disables checkpoints, no trace
// file discards call traces.
type Config struct {
	Agent        string `mapstructure:"agent"`
	DNAPath      string `mapstructure:"dna"`
	CASConfig    string `mapstructure:"cas_config"`
	ChainFile    string `mapstructure:"chain_file"`
	TraceFile    string `mapstructure:"trace_file"`
	TraceLevel   string `mapstructure:"trace_level"`
	MaxCallDepth int    `mapstructure:"max_call_depth"`
	SignHeaders  bool   `mapstructure:"sign_headers"`
	KeyDir       string `mapstructure:"key_dir"`
	KeyName      string `mapstructure:"key_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("agent", "")
	v.SetDefault("dna", "")
	v.SetDefault("cas_config", "")
	v.SetDefault("chain_file", "")
	v.SetDefault("trace_file", "")
	v.SetDefault("trace_level", "debug")
	v.SetDefault("max_call_depth", instance.DefaultMaxCallDepth)
	v.SetDefault("sign_headers", false)
	v.SetDefault("key_dir", "")
	v.SetDefault("key_name", "")
}

// Load reads path (if not empty), applies defaults and environment
// overrides, resolves relative paths against the directory of path, and
// validates the result.
func Load(path string) (Config, error) {
	return LoadWith(path, nil)
}

// LoadWith is Load with explicit overrides (e.g. from command line flags)
// keyed by setting name. Overrides win over environment and file.
func LoadWith(path string, overrides map[string]any) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if path != "" {
		c.resolve(filepath.Dir(path))
	}
	if c.KeyName == "" {
		c.KeyName = c.Agent
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) resolve(base string) {
	for _, p := range []*string{&c.DNAPath, &c.CASConfig, &c.ChainFile, &c.TraceFile, &c.KeyDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

func (c Config) Validate() error {
	if c.Agent == "" {
		return errors.New("config: missing agent")
	}
	if c.MaxCallDepth <= 0 {
		return fmt.Errorf("config: max_call_depth must be positive, got %d", c.MaxCallDepth)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.SignHeaders {
		if err := keys.CheckAgentName(c.KeyName); err != nil {
			return fmt.Errorf("config: key_name: %w", err)
		}
	}
	return nil
}

// Level parses TraceLevel ("debug", "info", "warn", "error").
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.TraceLevel)); err != nil {
		return 0, fmt.Errorf("config: trace_level: %w", err)
	}
	return level, nil
}
