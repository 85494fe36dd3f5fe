package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/agentchain/instance"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "node.yaml", `
agent: alex
dna: app/dna.yaml
cas_config: /etc/agentchain/cas.json
chain_file: state/chain.cbor
sign_headers: true
`)
	c, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, "alex", c.Agent)
	assert.Equal(t, filepath.Join(dir, "app", "dna.yaml"), c.DNAPath)
	assert.Equal(t, "/etc/agentchain/cas.json", c.CASConfig)
	assert.Equal(t, filepath.Join(dir, "state", "chain.cbor"), c.ChainFile)
	assert.Empty(t, c.TraceFile)
	assert.Equal(t, instance.DefaultMaxCallDepth, c.MaxCallDepth)
	assert.True(t, c.SignHeaders)
	assert.Equal(t, "debug", c.TraceLevel)
	assert.Equal(t, "alex", c.KeyName)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "node.json", `{"agent":"bob","max_call_depth":3,"key_name":"bob-signing","trace_level":"warn"}`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bob", c.Agent)
	assert.Equal(t, 3, c.MaxCallDepth)
	assert.Equal(t, "bob-signing", c.KeyName)
	level, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "node.yaml", "agent: alex\nmax_call_depth: 8\n")
	t.Setenv("AGENTCHAIN_AGENT", "carol")
	t.Setenv("AGENTCHAIN_MAX_CALL_DEPTH", "4")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "carol", c.Agent)
	assert.Equal(t, 4, c.MaxCallDepth)
}

func TestLoadWith_Overrides(t *testing.T) {
	path := writeFile(t, "node.yaml", "agent: alex\n")
	t.Setenv("AGENTCHAIN_AGENT", "carol")

	c, err := LoadWith(path, map[string]any{"agent": "erin", "max_call_depth": 2})
	require.NoError(t, err)
	assert.Equal(t, "erin", c.Agent)
	assert.Equal(t, 2, c.MaxCallDepth)

	_, err = LoadWith("", map[string]any{"agent": ""})
	assert.Error(t, err)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("AGENTCHAIN_AGENT", "dave")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dave", c.Agent)
	assert.Equal(t, instance.DefaultMaxCallDepth, c.MaxCallDepth)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing agent":   "dna: x.yaml\n",
		"zero depth":      "agent: alex\nmax_call_depth: 0\n",
		"bad key name":    "agent: alex\nsign_headers: true\nkey_name: \"a b\"\n",
		"malformed yaml":  "agent: [alex\n",
		"bad trace level": "agent: alex\ntrace_level: chatty\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "node.yaml", content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
