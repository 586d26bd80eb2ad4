package towerconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoOverrides(t *testing.T) {
	cfg, err := Load("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "tone", cfg.DefaultSource)
	assert.Equal(t, 440.0, cfg.ToneFrequency)
}

func TestLoad_YAMLOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tower.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9100\nstation_name: \"Nightwave\"\n"), 0o644))

	cfg, err := Load(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "Nightwave", cfg.StationName)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tower.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9100\n"), 0o644))

	t.Setenv("TOWER_PORT", "9200")

	cfg, err := Load(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Port)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	t.Setenv("TOWER_PORT", "9200")

	cfg, err := Load("", "", []string{"--port", "9300"})
	require.NoError(t, err)
	assert.Equal(t, 9300, cfg.Port)
}

func TestValidate_RejectsOutOfRangePort(t *testing.T) {
	cfg := Default()
	cfg.Port = 99999
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsFileSourceWithoutPath(t *testing.T) {
	cfg := Default()
	cfg.DefaultSource = "file"
	cfg.DefaultFilePath = ""
	assert.Error(t, cfg.Validate())
}

func TestEncoderBackoff_ConvertsMillisecondsToDurations(t *testing.T) {
	cfg := Default()
	backoff := cfg.EncoderBackoff()
	require.Len(t, backoff, 5)
	assert.Equal(t, "1s", backoff[0].String())
}
