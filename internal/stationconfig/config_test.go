package stationconfig

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
	assert.Equal(t, "./music", cfg.MusicDir)
	assert.False(t, cfg.StrictIntentAssertions)
}

func TestLoad_YAMLOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "station.yaml")
	require.NoError(t, os.WriteFile(path, []byte("music_dir: /srv/music\nstrict_intent_assertions: true\n"), 0o644))

	cfg, err := Load(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "/srv/music", cfg.MusicDir)
	assert.True(t, cfg.StrictIntentAssertions)
}

func TestLoad_FlagsOverrideYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "station.yaml")
	require.NoError(t, os.WriteFile(path, []byte("music_dir: /srv/music\n"), 0o644))
	t.Setenv("STATION_MUSIC_DIR", "/env/music")

	cfg, err := Load(path, "", []string{"--music-dir", "/flag/music"})
	require.NoError(t, err)
	assert.Equal(t, "/flag/music", cfg.MusicDir)
}

func TestValidate_RejectsEmptySocketPath(t *testing.T) {
	cfg := Default()
	cfg.SocketPath = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsInvertedPacingZones(t *testing.T) {
	cfg := Default()
	cfg.LowZoneMaxFillPct = 80
	cfg.SweetZoneMaxFillPct = 20
	assert.Error(t, cfg.Validate())
}

func TestLegalIDInterval_ConvertsSecondsToDuration(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "30m0s", cfg.LegalIDInterval().String())
}
