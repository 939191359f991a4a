package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, "en", cfg.SourceLang)
	require.Equal(t, []string{"vi"}, cfg.TargetLangs)
	require.True(t, cfg.Overlay.Enabled)
	require.Equal(t, 4, cfg.Overlay.Window)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source_lang: ja
target_langs: [en, fr]
overlay:
  enabled: false
  window: 8
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ja", cfg.SourceLang)
	require.Equal(t, []string{"en", "fr"}, cfg.TargetLangs)
	require.False(t, cfg.Overlay.Enabled)
	require.Equal(t, 8, cfg.Overlay.Window)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target_langs: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsTooManyLangs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source_lang: en
target_langs: [vi, fr, ja, ko, de]
`), 0o644))

	_, err := Load(path)
	require.ErrorContains(t, err, "at most 4")
}

func TestLoadRejectsDuplicateLangs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source_lang: en
target_langs: [vi, vi]
`), 0o644))

	_, err := Load(path)
	require.ErrorContains(t, err, "duplicate")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	want := Default()
	want.SourceLang = "de"
	want.TargetLangs = []string{"en"}
	want.Overlay.Window = 6
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
