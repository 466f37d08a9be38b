package userconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectedPanel(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	name, err := GetSelectedPanel()
	require.NoError(t, err)
	assert.Empty(t, name)

	require.NoError(t, SetSelectedPanel("prod"))

	name, err = GetSelectedPanel()
	require.NoError(t, err)
	assert.Equal(t, "prod", name)

	_, err = os.Stat(filepath.Join(dir, "gostpanel", "state.json"))
	assert.NoError(t, err)
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gostpanel"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gostpanel", "state.json"), []byte("{"), 0644))

	_, err := Load()
	assert.Error(t, err)
}
