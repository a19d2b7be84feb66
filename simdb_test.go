package simdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatsCodeAndCause(t *testing.T) {
	err := Error{Code: InvalidVersion, Err: assert.AnError, UserData: 7}
	assert.Contains(t, err.Error(), "error code: 1")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewUUIDIsUniqueAndNotNil(t *testing.T) {
	a := NewUUID()
	b := NewUUID()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsNil())
}

func TestParseUUIDRoundTrip(t *testing.T) {
	id := NewUUID()
	parsed, err := ParseUUID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestLoadConfigurationJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"logLevel":"DEBUG","defaultScript":"a.txt"}`), 0o644))

	cfg, err := LoadConfiguration(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "a.txt", cfg.DefaultScript)
}

func TestLoadConfigurationYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: WARN\ndefaultScript: b.txt\n"), 0o644))

	cfg, err := LoadConfiguration(path)
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.LogLevel)
	assert.Equal(t, "b.txt", cfg.DefaultScript)
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	_, err := LoadConfiguration("/nonexistent/config.json")
	assert.Error(t, err)
}
