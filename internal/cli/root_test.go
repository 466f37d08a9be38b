package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostpanel/console/internal/cli/commands"
)

func newTestRoot(t *testing.T) (*commands.Env, *bytes.Buffer) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GOSTPANEL_URL", "")
	out := &bytes.Buffer{}
	env := commands.NewEnv("dev")
	env.In = strings.NewReader("")
	env.Out = out
	env.Err = &bytes.Buffer{}
	return env, out
}

func TestRootCmd_Version(t *testing.T) {
	env, out := newTestRoot(t)
	root := NewRootCmd(env)
	root.SetArgs([]string{"version", "--config", t.TempDir() + "/console.yaml"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "gostctl version dev\n", out.String())
}

func TestRootCmd_Commands(t *testing.T) {
	env, _ := newTestRoot(t)
	root := NewRootCmd(env)

	for _, name := range []string{
		"login", "logout", "whoami", "register", "verify-email", "forgot-password",
		"reset-password", "change-password", "select-panel", "add-panel", "open",
		"shell", "update", "version", "dashboard", "nodes", "tunnels", "operation-logs",
	} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	env, _ := newTestRoot(t)
	root := NewRootCmd(env)

	require.NoError(t, root.PersistentFlags().Parse([]string{
		"--panel", "prod", "--url", "https://panel.example.com", "--store", "memory",
	}))
	assert.Equal(t, "prod", env.PanelName)
	assert.Equal(t, "https://panel.example.com", env.PanelURL)
	assert.Equal(t, "memory", env.StoreBackend)
}

func TestRootCmd_AddPanelNeedsNoSession(t *testing.T) {
	env, out := newTestRoot(t)
	path := t.TempDir() + "/console.yaml"
	root := NewRootCmd(env)
	root.SetArgs([]string{"add-panel", "prod", "https://panel.example.com", "--config", path})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Saved panel prod")
	assert.Nil(t, env.Session)
}
