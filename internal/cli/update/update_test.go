package update

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostpanel/console/internal/console/reload"
	"github.com/gostpanel/console/internal/console/router"
)

// releaseServer serves a release feed, one binary and its checksum.
func releaseServer(t *testing.T, tag string, binary []byte, checksum string) *Updater {
	t.Helper()

	name, err := BinaryName(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		t.Skipf("no release asset for this platform: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		fmt.Fprintf(w, `{"tag_name": %q, "name": "gostctl %s"}`, tag, tag)
	})
	mux.HandleFunc("/download/"+tag+"/"+name, func(w http.ResponseWriter, r *http.Request) {
		w.Write(binary)
	})
	mux.HandleFunc("/download/"+tag+"/"+name+".sha256", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s  %s\n", checksum, name)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u := New(&bytes.Buffer{})
	u.ReleaseURL = server.URL + "/latest"
	u.DownloadBaseURL = server.URL + "/download"
	return u
}

func sum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func installed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gostctl")
	require.NoError(t, os.WriteFile(path, []byte("old build"), 0755))
	return path
}

func TestCompareVersions(t *testing.T) {
	assert.True(t, compareVersions("dev", "v1.0.0"))
	assert.True(t, compareVersions("v1.0.0", "v1.1.0"))
	assert.False(t, compareVersions("1.1.0", "v1.1.0"))
}

func TestCheckForUpdate(t *testing.T) {
	u := releaseServer(t, "v1.2.0", nil, "")

	available, latest, err := u.CheckForUpdate(context.Background(), "v1.1.0")
	require.NoError(t, err)
	assert.True(t, available)
	assert.Equal(t, "v1.2.0", latest)

	var out bytes.Buffer
	u.Out = &out
	u.PrintUpdateNotification(context.Background(), "v1.1.0")
	assert.Contains(t, out.String(), "v1.1.0 -> v1.2.0")
}

func TestSelfUpdate_ReplacesBinary(t *testing.T) {
	binary := []byte("new build v1.2.0")
	u := releaseServer(t, "v1.2.0", binary, sum(binary))
	u.ExecPath = installed(t)

	// A console started from the old binary sees it go stale.
	watcher, err := reload.NewWatcher(u.ExecPath)
	require.NoError(t, err)

	require.NoError(t, u.SelfUpdate(context.Background(), "v1.1.0"))

	data, err := os.ReadFile(u.ExecPath)
	require.NoError(t, err)
	assert.Equal(t, binary, data)

	assert.ErrorIs(t, watcher.Check(), router.ErrStaleBundle)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(u.ExecPath), ".gostctl-update-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSelfUpdate_ChecksumMismatch(t *testing.T) {
	u := releaseServer(t, "v1.2.0", []byte("tampered"), sum([]byte("new build")))
	u.ExecPath = installed(t)

	err := u.SelfUpdate(context.Background(), "v1.1.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")

	data, _ := os.ReadFile(u.ExecPath)
	assert.Equal(t, "old build", string(data))
}

func TestSelfUpdate_AlreadyCurrent(t *testing.T) {
	u := releaseServer(t, "v1.2.0", nil, "")
	var out bytes.Buffer
	u.Out = &out
	u.ExecPath = installed(t)

	require.NoError(t, u.SelfUpdate(context.Background(), "v1.2.0"))
	assert.Contains(t, out.String(), "Already up to date")
}

func TestBinaryName(t *testing.T) {
	name, err := BinaryName("linux", "arm64")
	require.NoError(t, err)
	assert.Equal(t, "gostctl-linux-arm64", name)

	name, err = BinaryName("windows", "amd64")
	require.NoError(t, err)
	assert.Equal(t, "gostctl-windows-amd64.exe", name)

	_, err = BinaryName("plan9", "amd64")
	assert.Error(t, err)
	_, err = BinaryName("linux", "386")
	assert.Error(t, err)
}
