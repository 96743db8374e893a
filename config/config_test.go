package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Config(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "example.toml")

	err := generateConfig(configFile)
	require.NoError(t, err)

	cfg, err := Load(configFile, "0.0.0")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0", cfg.ServerVersion())
	assert.Equal(t, []string{"sample.org"}, cfg.Domains)
	assert.Equal(t, uint32(10), cfg.TTL)
	assert.Equal(t, 8, cfg.MaxDepth)
	assert.Equal(t, 3*time.Second, cfg.Timeout.Duration)
	assert.Contains(t, cfg.DB.Query, "?")
}

func Test_ConfigGenerated(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "missing.toml")

	_, err := Load(configFile, "0.0.0")
	require.NoError(t, err)

	// a default file appeared
	_, err = os.Stat(configFile)
	assert.NoError(t, err)
}

func Test_ConfigError(t *testing.T) {
	_, err := Load("", "0.0.0")
	assert.Error(t, err)
}

func Test_ConfigValidate(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.validate())

	cfg.Domains = []string{"demo.com"}
	require.NoError(t, cfg.validate())

	// defaults applied
	assert.Equal(t, uint32(10), cfg.TTL)
	assert.Equal(t, 8, cfg.MaxDepth)
	assert.Equal(t, 3*time.Second, cfg.Timeout.Duration)
	assert.Equal(t, "SELECT address FROM dns WHERE domain = ?", cfg.DB.Query)

	cfg.DB.Query = "SELECT address FROM dns WHERE domain = ? OR alias = ?"
	assert.Error(t, cfg.validate())

	cfg.DB.Query = "SELECT address FROM dns"
	assert.Error(t, cfg.validate())

	cfg.DB.Query = ""
	cfg.ClientRateLimit = -1
	assert.Error(t, cfg.validate())

	cfg.ClientRateLimit = 0
	assert.NoError(t, cfg.validate())
}

func Test_ConfigPasswordEnv(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "example.toml")
	require.NoError(t, generateConfig(configFile))

	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := Load(configFile, "0.0.0")
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.DB.Password)
}
